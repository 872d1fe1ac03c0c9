package codec

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// TextEncodingUTF8 is the default: strings are copied byte-for-byte.
const TextEncodingUTF8 = "utf-8"

var textEncodings = map[string]encoding.Encoding{
	"shift-jis": japanese.ShiftJIS,
	"euc-jp":    japanese.EUCJP,
	"gbk":       simplifiedchinese.GBK,
	"big5":      traditionalchinese.Big5,
}

var textEncodingAliases = map[string]string{
	"":          TextEncodingUTF8,
	"utf8":      TextEncodingUTF8,
	"sjis":      "shift-jis",
	"shift_jis": "shift-jis",
	"cp932":     "shift-jis",
	"eucjp":     "euc-jp",
	"cp936":     "gbk",
}

// LookupTextEncoding resolves a text encoding name. UTF-8 resolves to a nil
// encoding, meaning raw passthrough.
func LookupTextEncoding(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := textEncodingAliases[key]; ok {
		key = alias
	}
	if key == TextEncodingUTF8 {
		return nil, nil
	}
	enc, ok := textEncodings[key]
	if !ok {
		return nil, fmt.Errorf("unsupported text encoding %q (supported: %s)", name, strings.Join(TextEncodingNames(), ", "))
	}
	return enc, nil
}

// TextEncodingNames lists the canonical encoding names accepted by
// LookupTextEncoding.
func TextEncodingNames() []string {
	names := []string{TextEncodingUTF8}
	for name := range textEncodings {
		names = append(names, name)
	}
	sort.Strings(names[1:])
	return names
}
