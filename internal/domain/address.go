package domain

import (
	"strings"
	"time"
)

// TargetType 转发目标类型
type TargetType string

const (
	// TargetMail 转发到另一个邮件地址
	TargetMail TargetType = "mail"
	// TargetRelay 通过 SMTP 中继投递
	TargetRelay TargetType = "relay"
	// TargetHTTP 以 HTTP 请求上传
	TargetHTTP TargetType = "http"
)

// Target 转发地址上的单个转发目标。
// User 只是按地址反查得到的缓存，不作为归属依据。
type Target struct {
	ID    string     `json:"id"`
	Type  TargetType `json:"type"`
	Value string     `json:"value"`
	User  string     `json:"user,omitempty"`
}

// Autoreply 自动回复设置
type Autoreply struct {
	Status  bool       `json:"status"`
	Start   *time.Time `json:"start,omitempty"`
	End     *time.Time `json:"end,omitempty"`
	Name    string     `json:"name"`
	Subject string     `json:"subject"`
	Text    string     `json:"text"`
	HTML    string     `json:"html"`
}

// Address 表示一个可投递的地址。
// 带 UserID 的是用户邮箱地址，不带 UserID 而带 Targets 的是转发地址。
// TargetValues 是小写目标值逐行拼接的结果，只供按转发目标过滤使用。
type Address struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Address      string    `json:"address" gorm:"type:varchar(320);not null"`
	Addrview     string    `json:"addrview" gorm:"column:addrview;type:varchar(320);uniqueIndex;not null"`
	UserID       *string   `json:"user,omitempty" gorm:"column:user_id;type:varchar(36);index"`
	Name         string    `json:"name,omitempty" gorm:"type:varchar(255)"`
	Targets      []Target  `json:"targets,omitempty" gorm:"serializer:json;type:text"`
	TargetValues string    `json:"-" gorm:"column:targetvalues;type:text"`
	Forwards     int       `json:"forwards" gorm:"default:0"`
	Autoreply    Autoreply `json:"autoreply" gorm:"serializer:json;type:text"`
	Tags         []string  `json:"tags" gorm:"serializer:json;type:text"`
	TagsView     []string  `json:"tagsview" gorm:"column:tagsview;serializer:json;type:text"`
	Created      time.Time `json:"created" gorm:"column:created;not null"`
}

// TableName 地址集合
func (Address) TableName() string {
	return "addresses"
}

// IsForwarded 是否为转发地址
func (a *Address) IsForwarded() bool {
	return a.UserID == nil
}

// IsWildcard 是否为通配地址
func (a *Address) IsWildcard() bool {
	return strings.Contains(a.Addrview, "*")
}

// OwnedBy 地址是否属于指定用户
func (a *Address) OwnedBy(userID string) bool {
	return a.UserID != nil && *a.UserID == userID
}

// TargetSearchText 计算 TargetValues：每个目标值小写后占一行
func (a *Address) TargetSearchText() string {
	values := make([]string, len(a.Targets))
	for i, t := range a.Targets {
		values[i] = strings.ToLower(t.Value)
	}
	return strings.Join(values, "\n")
}
