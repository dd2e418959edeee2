package models

import (
	"net/http"

	"optimetro.kochimetro.org/internal/clock"
)

// ResponseModel is the envelope every endpoint answers with.
type ResponseModel struct {
	Code        int         `json:"code"`
	CurrentTime int64       `json:"currentTime"`
	Data        interface{} `json:"data,omitempty"`
	Text        string      `json:"text"`
	Version     int         `json:"version"`
}

type EntryData struct {
	Entry interface{} `json:"entry"`
}

type ListData struct {
	List          interface{} `json:"list"`
	LimitExceeded bool        `json:"limitExceeded"`
}

type FieldErrorsData struct {
	FieldErrors map[string][]string `json:"fieldErrors"`
}

func NewResponse(code int, data interface{}, text string, c clock.Clock) ResponseModel {
	return ResponseModel{
		Code:        code,
		CurrentTime: c.Now().UnixMilli(),
		Data:        data,
		Text:        text,
		Version:     APIVersion,
	}
}

func NewOKResponse(data interface{}, c clock.Clock) ResponseModel {
	return NewResponse(http.StatusOK, data, "OK", c)
}

func NewEntryResponse(entry interface{}, c clock.Clock) ResponseModel {
	return NewOKResponse(EntryData{Entry: entry}, c)
}

func NewListResponse(list interface{}, limitExceeded bool, c clock.Clock) ResponseModel {
	return NewOKResponse(ListData{List: list, LimitExceeded: limitExceeded}, c)
}

func NewErrorResponse(code int, text string, c clock.Clock) ResponseModel {
	return NewResponse(code, nil, text, c)
}

func NewValidationErrorResponse(fieldErrors map[string][]string, c clock.Clock) ResponseModel {
	return NewResponse(http.StatusBadRequest, FieldErrorsData{FieldErrors: fieldErrors}, "validation error", c)
}
