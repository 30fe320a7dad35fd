// Package repository реализует хранилища фильмов и пользователей поверх PostgreSQL.
package repository

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/films-api/internal/lib/httperr"
	"github.com/magabrotheeeer/films-api/internal/models"
)

// errWrongSearchKey — ключ поиска не входит в разрешённый список.
var errWrongSearchKey = httperr.BadRequest("Wrong search key")

// where строит условие WHERE из фильтра по разрешённым колонкам.
// Ключи сортируются, чтобы текст запроса не зависел от порядка обхода map.
func where(filter models.Filter, columns map[string]string, args []any) (string, []any, error) {
	if len(filter) == 0 {
		return "", args, nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, 0, len(keys))
	for _, k := range keys {
		column, ok := columns[k]
		if !ok {
			return "", nil, errWrongSearchKey
		}
		args = append(args, filter[k])
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// window добавляет LIMIT/OFFSET. pageSize <= 0 — без ограничения.
func window(page, pageSize int, args []any) (string, []any) {
	if pageSize <= 0 {
		return "", args
	}
	if page < 1 {
		page = 1
	}
	args = append(args, pageSize, (page-1)*pageSize)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

// hasInvalidUUID сообщает, что фильтр по uuid‑колонке заведомо ничего не найдёт.
func hasInvalidUUID(filter models.Filter, uuidKeys ...string) bool {
	for _, k := range uuidKeys {
		if v, ok := filter[k]; ok {
			if _, err := uuid.Parse(v); err != nil {
				return true
			}
		}
	}
	return false
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
