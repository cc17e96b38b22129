// Package catalog фиксированный упорядоченный набор категорий секретов.
package catalog

const (
	Desire = "desire"
	Family = "family"
	Work   = "work"
	Health = "health"
	Other  = "other"
)

var categories = []string{Desire, Family, Work, Health, Other}

var members = func() map[string]struct{} {
	m := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		m[c] = struct{}{}
	}
	return m
}()

// IsMember сообщает, входит ли категория в каталог. Сравнение точное.
func IsMember(category string) bool {
	_, ok := members[category]
	return ok
}

// All возвращает категории в каноническом порядке. Срез принадлежит вызывающему.
func All() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}
