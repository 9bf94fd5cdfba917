package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/CodeAndHammer/eikensim/internal/models"
)

const (
	MaxBodyBytes   = 16_000
	MaxAnswerChars = 4_000
)

const (
	msgInvalidOrigin     = "Invalid origin."
	msgNotJSON           = "Please submit the request as JSON."
	msgBodyTooLarge      = "Request body is too large."
	msgMalformedBody     = "Malformed request body."
	msgAnswerNotString   = "answer must be a string."
	msgAnswerEmpty       = "No answer was provided."
	msgAnswerTooLong     = "Answer is too long."
	msgSeriousNotBool    = "serious must be a boolean."
	msgInvalidQuestionID = "questionId is invalid."
)

// RequestError is a client input error answered with Status and Message.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string { return e.Message }

func badRequest(msg string) *RequestError {
	return &RequestError{Status: http.StatusBadRequest, Message: msg}
}

// Submission is a validated score request.
type Submission struct {
	Answer     string
	Serious    bool
	QuestionID *int
}

// parseSubmission applies every input check in order and stops at the first
// failure. The origin check runs before anything is read from the body.
func parseSubmission(app *models.App, c *gin.Context) (Submission, *RequestError) {
	if origin := c.GetHeader("Origin"); origin != "" && !allowedOrigin(app, c.Request, origin) {
		return Submission{}, &RequestError{Status: http.StatusForbidden, Message: msgInvalidOrigin}
	}

	if !strings.Contains(strings.ToLower(c.GetHeader("Content-Type")), "application/json") {
		return Submission{}, &RequestError{Status: http.StatusUnsupportedMediaType, Message: msgNotJSON}
	}

	if c.Request.ContentLength > MaxBodyBytes {
		return Submission{}, &RequestError{Status: http.StatusRequestEntityTooLarge, Message: msgBodyTooLarge}
	}
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return Submission{}, &RequestError{Status: http.StatusRequestEntityTooLarge, Message: msgBodyTooLarge}
		}
		return Submission{}, badRequest(msgMalformedBody)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil || body == nil {
		return Submission{}, badRequest(msgMalformedBody)
	}

	var sub Submission

	rawAnswer, ok := body["answer"]
	if !ok || isNull(rawAnswer) || json.Unmarshal(rawAnswer, &sub.Answer) != nil {
		return Submission{}, badRequest(msgAnswerNotString)
	}
	sub.Answer = strings.TrimSpace(strings.ReplaceAll(sub.Answer, "\x00", ""))
	if sub.Answer == "" {
		return Submission{}, badRequest(msgAnswerEmpty)
	}
	if utf8.RuneCountInString(sub.Answer) > MaxAnswerChars {
		return Submission{}, &RequestError{Status: http.StatusRequestEntityTooLarge, Message: msgAnswerTooLong}
	}

	if raw, ok := body["serious"]; ok {
		if isNull(raw) || json.Unmarshal(raw, &sub.Serious) != nil {
			return Submission{}, badRequest(msgSeriousNotBool)
		}
	}

	if raw, ok := body["questionId"]; ok {
		id, valid := parseQuestionID(raw)
		if !valid || app.Questions == nil || !app.Questions.Has(id) {
			return Submission{}, badRequest(msgInvalidQuestionID)
		}
		sub.QuestionID = &id
	}

	return sub, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// parseQuestionID accepts any JSON number with no fractional part.
func parseQuestionID(raw json.RawMessage) (int, bool) {
	var f float64
	if isNull(raw) || json.Unmarshal(raw, &f) != nil {
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// allowedOrigin reports whether origin is the origin this request was served
// on, or the configured public origin when running behind a proxy.
func allowedOrigin(app *models.App, r *http.Request, origin string) bool {
	origin = strings.TrimSuffix(origin, "/")
	if app.PublicOrigin != "" && origin == strings.TrimSuffix(app.PublicOrigin, "/") {
		return true
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return origin == scheme+"://"+r.Host
}
