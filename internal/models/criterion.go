package models

// Criterion — фильтр поиска по равенству одного поля.
type Criterion struct {
	Key   string
	Value string
}
