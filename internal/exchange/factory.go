package exchange

import (
	"fmt"
	"strings"
)

// SupportedExchanges - список поддерживаемых площадок
var SupportedExchanges = []string{
	"hyperliquid",
	"paradex",
	"paper",
}

// NewExchange создает новый экземпляр площадки по имени
func NewExchange(name string) (Exchange, error) {
	name = strings.ToLower(name)

	switch name {
	case "hyperliquid":
		return NewHyperliquid(), nil
	case "paradex":
		return NewParadex(), nil
	case "paper":
		return NewPaper("paper", 100000, 2), nil
	default:
		return nil, fmt.Errorf("unsupported exchange: %s", name)
	}
}

// IsSupported проверяет, поддерживается ли площадка
func IsSupported(name string) bool {
	name = strings.ToLower(name)
	for _, supported := range SupportedExchanges {
		if name == supported {
			return true
		}
	}
	return false
}
