// Package pagination считает страницы и строит ссылки на соседние страницы списка.
package pagination

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPageSize — размер страницы списка фильмов.
const DefaultPageSize = 6

// Page разбирает номер страницы. Пустое, нечисловое или меньшее 1 значение даёт 1.
func Page(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// TotalPages возвращает ceil(count/pageSize).
func TotalPages(count, pageSize int) int {
	if pageSize <= 0 || count <= 0 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}

// Links возвращает абсолютные ссылки на предыдущую и следующую страницы.
// nil означает, что страницы нет.
func Links(r *http.Request, page, totalPages int) (previous, next *string) {
	if page > 1 {
		u := pageURL(r, page-1)
		previous = &u
	}
	if page < totalPages {
		u := pageURL(r, page+1)
		next = &u
	}
	return previous, next
}

// pageURL сохраняет исходные параметры запроса в их порядке, кроме page,
// и добавляет page последним. Схема берётся из r.URL.Scheme, которую
// выставляет middlewarectx.ForwardedProto за доверенным прокси.
func pageURL(r *http.Request, page int) string {
	scheme := r.URL.Scheme
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}

	params := make([]string, 0, 4)
	for _, part := range strings.Split(r.URL.RawQuery, "&") {
		if part == "" {
			continue
		}
		key, _, _ := strings.Cut(part, "=")
		if k, err := url.QueryUnescape(key); err == nil && k == "page" {
			continue
		}
		params = append(params, part)
	}
	params = append(params, "page="+strconv.Itoa(page))

	return scheme + "://" + r.Host + r.URL.Path + "?" + strings.Join(params, "&")
}
