package query

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
)

// maxTextLength caps user-supplied filter text before it is embedded in a
// regex match.
const maxTextLength = 100

// discreteParams maps listing query parameters to the document field each one
// constrains. "name" historically matches the title field.
var discreteParams = []struct {
	param string
	field string
}{
	{"status", "status"},
	{"category", "category"},
	{"brand", "brand"},
	{"author", "author"},
	{"name", "title"},
}

func sanitizeText(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxTextLength {
		// Back the cut off to a rune boundary so the truncated text stays
		// valid UTF-8.
		cut := maxTextLength
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

// containsMatch builds a case-insensitive literal substring predicate. All
// regex metacharacters in the input are escaped first.
func containsMatch(text string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(text), "$options": "i"}
}

// BuildFilter turns raw, untrusted query parameters into a Mongo predicate.
// A free-text "q" parameter becomes an OR match across searchFields; each
// discrete parameter adds an independent substring constraint. With no
// parameters set, the returned predicate matches everything.
func BuildFilter(params url.Values, searchFields []string) bson.M {
	filter := bson.M{}

	if q := sanitizeText(params.Get("q")); q != "" && len(searchFields) > 0 {
		or := make([]bson.M, 0, len(searchFields))
		for _, field := range searchFields {
			or = append(or, bson.M{field: containsMatch(q)})
		}
		filter["$or"] = or
	}

	for _, p := range discreteParams {
		if v := sanitizeText(params.Get(p.param)); v != "" {
			filter[p.field] = containsMatch(v)
		}
	}

	return filter
}
