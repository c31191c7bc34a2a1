// Package pagination 实现基于排序键的游标分页。
// 游标是上一页边界元素排序键的 base64url 编码，下一页取键大于游标的元素，
// 上一页取键小于游标的元素。
package pagination

import (
	"encoding/base64"
	"encoding/json"

	"mailplatform/backend/internal/domain"
)

// 默认分页参数
const (
	DefaultLimit = 20
	MaxLimit     = 250
)

// Cursor 不透明分页游标，为空时序列化为 false
type Cursor string

// MarshalJSON 空游标输出 false
func (c Cursor) MarshalJSON() ([]byte, error) {
	if c == "" {
		return []byte("false"), nil
	}
	return json.Marshal(string(c))
}

// UnmarshalJSON 接受字符串或 false
func (c *Cursor) UnmarshalJSON(data []byte) error {
	if string(data) == "false" || string(data) == "null" {
		*c = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = Cursor(s)
	return nil
}

// Encode 将排序键编码为游标
func Encode(key string) Cursor {
	return Cursor(base64.RawURLEncoding.EncodeToString([]byte(key)))
}

// Decode 解析游标，返回其中的排序键
func Decode(cursor string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil || len(raw) == 0 {
		return "", domain.ErrInvalidCursor
	}
	return string(raw), nil
}

// Request 调用方的分页参数
type Request struct {
	Limit    int    `form:"limit" json:"limit"`
	Next     string `form:"next" json:"next"`
	Previous string `form:"previous" json:"previous"`
	Page     int    `form:"page" json:"page"`
}

// Window 交给存储层的查询窗口。
// 正向时取排序键大于 After 的元素升序，反向时取小于 Before 的元素降序，都多取一条用于判断是否还有更多。
type Window struct {
	After    string
	Before   string
	Backward bool
	Limit    int
}

// Fetch 存储层应读取的条数
func (w Window) Fetch() int {
	return w.Limit + 1
}

// Paginator 根据配置的上下限生成查询窗口
type Paginator struct {
	defaultLimit int
	maxLimit     int
}

// NewPaginator 创建分页器，非正值使用默认值
func NewPaginator(defaultLimit, maxLimit int) *Paginator {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = DefaultLimit
		if defaultLimit > maxLimit {
			defaultLimit = maxLimit
		}
	}
	return &Paginator{defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// Window 校验游标并生成查询窗口；同时给出 next 与 previous 时以 next 为准
func (p *Paginator) Window(req Request) (Window, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = p.defaultLimit
	}
	if limit > p.maxLimit {
		limit = p.maxLimit
	}

	w := Window{Limit: limit}
	switch {
	case req.Next != "":
		key, err := Decode(req.Next)
		if err != nil {
			return Window{}, err
		}
		w.After = key
	case req.Previous != "":
		key, err := Decode(req.Previous)
		if err != nil {
			return Window{}, err
		}
		w.Before = key
		w.Backward = true
	}
	return w, nil
}

// Page 一页结果
type Page[T any] struct {
	Query          string `json:"query"`
	Results        []T    `json:"results"`
	Total          int64  `json:"total"`
	Page           int    `json:"page"`
	HasPrevious    bool   `json:"hasPrevious"`
	HasNext        bool   `json:"hasNext"`
	PreviousCursor Cursor `json:"previousCursor"`
	NextCursor     Cursor `json:"nextCursor"`
}

// Build 根据存储层按窗口读出的元素组装分页结果
func Build[T any](items []T, key func(T) string, w Window, req Request, total int64) Page[T] {
	hasMore := len(items) > w.Limit
	if hasMore {
		items = items[:w.Limit]
	}
	if w.Backward {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}

	forwardGiven := !w.Backward && w.After != ""
	hasPrevious := forwardGiven || (w.Backward && hasMore)
	hasNext := w.Backward || hasMore

	page := Page[T]{Results: items, Total: total, Page: 1}
	if items == nil {
		page.Results = []T{}
	}
	if hasPrevious {
		page.Page = req.Page
		if page.Page < 1 {
			page.Page = 1
		}
	}
	// 空页没有边界元素，无法给出游标，两个方向都视为没有更多
	if len(items) > 0 {
		if hasPrevious {
			page.HasPrevious = true
			page.PreviousCursor = Encode(key(items[0]))
		}
		if hasNext {
			page.HasNext = true
			page.NextCursor = Encode(key(items[len(items)-1]))
		}
	}
	return page
}
