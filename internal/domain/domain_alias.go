package domain

import "time"

// DomainAlias 域名别名：发往 Alias 域的邮件按 Domain 域解析
type DomainAlias struct {
	ID      string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Alias   string    `json:"alias" gorm:"type:varchar(255);uniqueIndex;not null"`
	Domain  string    `json:"domain" gorm:"type:varchar(255);index;not null"`
	Created time.Time `json:"created" gorm:"column:created;not null"`
}

// TableName 域名别名集合
func (DomainAlias) TableName() string {
	return "domainaliases"
}

// DKIMKey DKIM 签名密钥记录，本服务只维护其 Domain 字段
type DKIMKey struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Domain      string    `json:"domain" gorm:"type:varchar(255);index;not null"`
	Selector    string    `json:"selector" gorm:"type:varchar(255)"`
	Description string    `json:"description,omitempty" gorm:"type:varchar(255)"`
	Created     time.Time `json:"created" gorm:"column:created;not null"`
}

// TableName DKIM 集合
func (DKIMKey) TableName() string {
	return "dkim"
}
