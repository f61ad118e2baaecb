package notify

import (
	"fmt"

	"github.com/sweeney/alert-dispatch/internal/encode"
)

const requestTemplate = "GET %s?phone=%s&text=%s&apikey=%s HTTP/1.1\r\n" +
	"Host: %s\r\n" +
	"Connection: close\r\n" +
	"User-Agent: %s\r\n" +
	"Accept: */*\r\n\r\n"

// BuildRequest renders the HTTP request for p. Only the message text is
// encoded; phone and key are sent as configured.
func BuildRequest(cfg Config, p AlertPayload) []byte {
	text := encode.Encode(p.Message, encode.DefaultCapacity)
	return []byte(fmt.Sprintf(requestTemplate, cfg.Path, p.Phone, text, p.APIKey, cfg.Host, cfg.UserAgent))
}
