package workflow

import (
	"net/url"
	"strings"

	"labstock-backend/internal/catalog"
)

// CodeFromPayload turns scanner or link input into a product code. Label
// QR codes carry a deep link, so URLs contribute their product_code query
// parameter; anything else is taken as the code itself.
func CodeFromPayload(payload string) string {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return ""
	}
	u, err := url.Parse(payload)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return catalog.NormalizeCode(payload)
	}
	return catalog.NormalizeCode(u.Query().Get(catalog.CodeParam))
}
