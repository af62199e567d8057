package runtime

import (
	"sort"
	"strings"
	"unicode"
)

// SnakeCase converts an entity or field identifier such as "DataType" into "data_type".
func SnakeCase(in string) string {
	if in == "" {
		return in
	}
	runes := []rune(in)
	out := make([]rune, 0, len(runes)*2)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				out = append(out, '_')
			}
			out = append(out, unicode.ToLower(r))
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

var irregularPlurals = map[string]string{
	"person": "people",
	"man":    "men",
	"woman":  "women",
	"child":  "children",
}

// TableName derives the conventional table name for an entity: snake case, pluralised.
func TableName(entity string) string {
	word := SnakeCase(entity)
	if word == "" {
		return word
	}
	head, last := "", word
	if idx := strings.LastIndexByte(word, '_'); idx >= 0 {
		head, last = word[:idx+1], word[idx+1:]
	}
	return head + pluralize(last)
}

func pluralize(word string) string {
	if plural, ok := irregularPlurals[word]; ok {
		return plural
	}
	for _, suffix := range []string{"ies", "ses", "xes", "zes", "ches", "shes"} {
		if strings.HasSuffix(word, suffix) {
			return word
		}
	}
	if strings.HasSuffix(word, "y") && len(word) > 1 && !strings.ContainsRune("aeiou", rune(word[len(word)-2])) {
		return word[:len(word)-1] + "ies"
	}
	if strings.HasSuffix(word, "ch") || strings.HasSuffix(word, "sh") || strings.HasSuffix(word, "x") || strings.HasSuffix(word, "z") {
		return word + "es"
	}
	if strings.HasSuffix(word, "s") {
		if strings.HasSuffix(word, "ss") || strings.HasSuffix(word, "us") || strings.HasSuffix(word, "is") {
			return word + "es"
		}
		return word
	}
	return word + "s"
}

// JoinTableName returns the default many-to-many join table for two tables.
func JoinTableName(left, right string) string {
	parts := []string{left, right}
	sort.Strings(parts)
	return strings.Join(parts, "_")
}

// ForeignKey returns the conventional foreign key column referencing entity.
func ForeignKey(entity string) string { return SnakeCase(entity) + "_id" }
