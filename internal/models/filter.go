package models

// Filter — условия равенства для выборки списка. Пустой фильтр ничего не отбирает.
type Filter map[string]string
