package worker

import (
	"github.com/incidex/incidex/internal/events"
	"github.com/incidex/incidex/internal/service"
)

// StartNotificationWorker registers the mail consumer on the dispatcher.
func StartNotificationWorker(mailNotifier *service.MailNotifier, dispatcher events.Dispatcher) {
	if mailNotifier == nil {
		return
	}
	mailNotifier.RegisterHandlers(dispatcher)
}
