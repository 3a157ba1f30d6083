package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoResponse is matched by every failure of Recommend.
var ErrNoResponse = errors.New("no response from model")

type Class string

const (
	ClassTransient Class = "transient"
	ClassQuota     Class = "quota"
	ClassAuth      Class = "auth"
	ClassMalformed Class = "malformed"
	ClassPermanent Class = "permanent"
)

// Retryable reports whether another attempt can succeed.
func (c Class) Retryable() bool {
	return c == ClassTransient
}

// Error is returned by Recommend after the last attempt.
type Error struct {
	Class    Class
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("model call failed (%s after %d attempt(s)): %v", e.Class, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrNoResponse
}

var quotaWords = []string{"quota", "per day", "daily limit", "billing", "insufficient_quota"}

var transientWords = []string{"unavailable", "overloaded", "timeout", "timed out", "try again", "temporarily"}

// Classify maps a chat completion error onto a retry class.
func Classify(err error) Class {
	if err == nil {
		return ""
	}

	var malformed *parseError
	if errors.As(err, &malformed) {
		return ClassMalformed
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	if errors.Is(err, context.Canceled) {
		return ClassPermanent
	}

	msg := strings.ToLower(err.Error())
	status := 0

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		msg = strings.ToLower(apiErr.Message + " " + apiErr.Type + " " + fmt.Sprint(apiErr.Code))
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
		msg = strings.ToLower(reqErr.Error())
	}

	if strings.Contains(msg, "resource_exhausted") || status == http.StatusTooManyRequests {
		if containsAny(msg, quotaWords) {
			return ClassQuota
		}
		return ClassTransient
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ClassAuth
	case status >= 500:
		return ClassTransient
	case status >= 400:
		if containsAny(msg, transientWords) {
			return ClassTransient
		}
		return ClassPermanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}
	if containsAny(msg, transientWords) {
		return ClassTransient
	}
	if status == 0 {
		// transport failures without an HTTP status
		return ClassTransient
	}
	return ClassPermanent
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
