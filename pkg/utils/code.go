package utils

import (
	"strings"
)

// Common company name aliases mapped to their listed codes.
var codeAliases = map[string]string{
	"TOYOTA":          "7203",
	"HONDA":           "7267",
	"NISSAN":          "7201",
	"SONY":            "6758",
	"NINTENDO":        "7974",
	"SOFTBANK":        "9984",
	"SBG":             "9984",
	"KEYENCE":         "6861",
	"FAST RETAILING":  "9983",
	"UNIQLO":          "9983",
	"MUFG":            "8306",
	"SMFG":            "8316",
	"MIZUHO":          "8411",
	"NTT":             "9432",
	"KDDI":            "9433",
	"HITACHI":         "6501",
	"TOKYO ELECTRON":  "8035",
	"TEL":             "8035",
	"SHIN-ETSU":       "4063",
	"DAIKIN":          "6367",
	"RECRUIT":         "6098",
	"TAKEDA":          "4502",
	"MITSUBISHI CORP": "8058",
	"MITSUI":          "8031",
	"ITOCHU":          "8001",
	"ORIENTAL LAND":   "4661",
	"SEVEN & I":       "3382",
}

// NormalizeCode converts user input to the canonical 4-character company code.
// It trims whitespace, resolves aliases, strips exchange suffixes (".T", ".JP")
// and shortens the provider's 5-character form ("72030") to 4 characters.
func NormalizeCode(code string) string {
	code = strings.TrimSpace(strings.ToUpper(code))
	code = strings.TrimPrefix(code, "$")

	if canonical, ok := codeAliases[code]; ok {
		return canonical
	}

	for _, suffix := range []string{".T", ".JP", ".TYO"} {
		code = strings.TrimSuffix(code, suffix)
	}

	if len(code) == 5 && strings.HasSuffix(code, "0") {
		code = code[:4]
	}
	return code
}

// IsValidCode reports whether code is exactly 4 ASCII letters or digits.
func IsValidCode(code string) bool {
	if len(code) != 4 {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		isDigit := c >= '0' && c <= '9'
		isUpper := c >= 'A' && c <= 'Z'
		if !isDigit && !isUpper {
			return false
		}
	}
	return true
}

// ToProviderCode converts a 4-character code to the provider's 5-character form.
func ToProviderCode(code string) string {
	if len(code) == 4 {
		return code + "0"
	}
	return code
}
