package dto

import "time"

// DefaultPageSize applies when a listing is asked for a non-positive page size.
const DefaultPageSize = 20

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Details   any                `json:"details,omitempty"`
	Fields    []ValidationDetail `json:"fields,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// ValidationDetail is one rejected request field.
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta describes one page of a listing.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func NewMeta(total int64, page, pageSize int) *Meta {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	size := int64(pageSize)
	return &Meta{
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + size - 1) / size),
	}
}

// OK wraps data in a success envelope.
func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Page wraps one page of a listing.
func Page(data any, total int64, page, pageSize int) Response {
	return Response{Success: true, Data: data, Meta: NewMeta(total, page, pageSize)}
}

// Fail builds an error envelope stamped with the current UTC time.
func Fail(code, message, requestID string) Response {
	return Response{Error: &ErrorInfo{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	}}
}

// WithDetails attaches structured context, such as the lines whose price changed.
func (r Response) WithDetails(details any) Response {
	if r.Error != nil {
		e := *r.Error
		e.Details = details
		r.Error = &e
	}
	return r
}

// WithFields lists the rejected request fields.
func (r Response) WithFields(fields []ValidationDetail) Response {
	if r.Error != nil {
		e := *r.Error
		e.Fields = fields
		r.Error = &e
	}
	return r
}
