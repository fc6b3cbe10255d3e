package middleware

import tele "gopkg.in/telebot.v3"

// DispatcherOnly drops updates from everyone but the dispatcher without any reply.
func DispatcherOnly(dispatcher int64) tele.MiddlewareFunc {
	return func(hf tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender() == nil || c.Sender().ID != dispatcher {
				return nil
			}
			return hf(c)
		}
	}
}
