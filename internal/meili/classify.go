package meili

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Classify maps a non-success response onto a ServiceError. It never fails:
// bodies that are not JSON objects keep their raw text as the message.
func Classify(httpStatus int, body []byte) *ServiceError {
	svcErr := &ServiceError{
		HTTPStatus: httpStatus,
		Body:       bytes.Clone(body),
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		svcErr.Message = strings.TrimSpace(string(body))
		if svcErr.Message == "" {
			svcErr.Message = statusLine(httpStatus)
		}
		return svcErr
	}

	svcErr.Message = fmt.Sprintf("%s: %s", statusLine(httpStatus), strings.TrimSpace(string(body)))

	var raw string
	if field, ok := payload["code"]; ok && json.Unmarshal(field, &raw) == nil {
		svcErr.RawCode = raw
	}
	if code, ok := LookupCode(svcErr.RawCode); ok {
		svcErr.Code = code
		svcErr.Message += "\nhow to fix: " + code.Description()
	}
	return svcErr
}

func statusLine(status int) string {
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("status %d %s", status, text)
	}
	return fmt.Sprintf("status %d", status)
}
