package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aerlaedt-netizen/eviknumber2/auth"
	"github.com/aerlaedt-netizen/eviknumber2/repository"
	"github.com/aerlaedt-netizen/eviknumber2/services"
)

type requestJSON struct {
	ID             int64           `json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	Status         string          `json:"status"`
	TgUserID       *int64          `json:"tg_user_id"`
	TgUsername     *string         `json:"tg_username"`
	TgFullName     *string         `json:"tg_full_name"`
	PhoneFormatted *string         `json:"phone_formatted"`
	Phone          *string         `json:"phone"`
	CarBrand       *string         `json:"car_brand"`
	Address        *string         `json:"address"`
	Geo            *string         `json:"geo"`
	YandexLink     *string         `json:"yandex_link"`
	Payload        json.RawMessage `json:"payload_json,omitempty"`
}

// statusJSON is the short form returned after a status change.
type statusJSON struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toJSON(r repository.Request, withPayload bool) requestJSON {
	out := requestJSON{
		ID:             r.ID,
		CreatedAt:      r.CreatedAt.UTC(),
		Status:         string(r.Status),
		TgUsername:     optional(r.Requester.Username),
		TgFullName:     optional(r.Requester.FullName),
		PhoneFormatted: optional(r.PhoneFormatted),
		Phone:          optional(r.Phone),
		CarBrand:       optional(r.CarBrand),
		Address:        optional(r.Address),
		Geo:            optional(r.Geo),
		YandexLink:     optional(r.MapLink),
	}
	if r.Requester.UserID != 0 {
		id := r.Requester.UserID
		out.TgUserID = &id
	}
	if withPayload && len(r.RawPayload) > 0 {
		out.Payload = r.RawPayload
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorJSON struct {
	Detail string `json:"detail"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := http.StatusInternalServerError, "Internal error"
	switch {
	case errors.Is(err, auth.ErrForbidden):
		status, detail = http.StatusForbidden, "Not an admin"
	case errors.Is(err, auth.ErrUnauthorized):
		status, detail = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, repository.ErrNotFound):
		status, detail = http.StatusNotFound, "Not found"
	case errors.Is(err, repository.ErrBadStatus):
		status, detail = http.StatusBadRequest, "Bad status"
	case errors.Is(err, errBadRequest), errors.Is(err, services.ErrNegativeDelta):
		status, detail = http.StatusBadRequest, err.Error()
	}
	log := s.log.With(zap.String("request_id", RequestID(r.Context())), zap.Int("status", status))
	if status >= http.StatusInternalServerError {
		log.Error("Ошибка обработки запроса", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		log.Info("Запрос отклонён", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorJSON{Detail: detail})
}
