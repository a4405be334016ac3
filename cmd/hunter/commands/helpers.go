package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bigbit0987/stock-trans/internal/app"
)

func parsePrice(s string) (float64, error) {
	price, err := strconv.ParseFloat(s, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	return price, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveID accepts a full position ID, a unique ID prefix, or a
// symbol held in exactly one open position.
func resolveID(a *app.App, ref string) (string, error) {
	open, err := a.Ledger.Open()
	if err != nil {
		return "", err
	}

	var matches []string
	for _, p := range open {
		if p.ID == ref {
			return p.ID, nil
		}
		if strings.HasPrefix(p.ID, ref) || p.Symbol == ref {
			matches = append(matches, p.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("no open position matches %q", ref)
	default:
		return "", fmt.Errorf("%q is ambiguous, matches %d positions", ref, len(matches))
	}
}
