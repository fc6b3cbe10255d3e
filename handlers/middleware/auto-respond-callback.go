package middleware

import tele "gopkg.in/telebot.v3"

// AutoRespondCallback answers every callback query so the client stops its spinner.
func AutoRespondCallback(hf tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		err := hf(c)
		if c.Callback() != nil {
			_ = c.Respond(&tele.CallbackResponse{})
		}
		return err
	}
}
