package domain

import "time"

// User 用户记录，由外部账号子系统维护；本服务只读写其主地址。
// Address 非空时必须等于某个归属该用户的 Address 记录的 address 字段。
type User struct {
	ID       string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username string    `json:"username" gorm:"type:varchar(100);index"`
	Address  string    `json:"address" gorm:"type:varchar(320);index"`
	Created  time.Time `json:"created" gorm:"column:created"`
}

// TableName 用户集合
func (User) TableName() string {
	return "users"
}

// Caller 外部认证与鉴权层交给核心的调用方上下文
type Caller struct {
	ID      string // 已认证的调用方标识
	Allowed bool   // 对本次操作的授权判定
}

// Authorize 未获授权时拒绝执行
func (c Caller) Authorize() error {
	if !c.Allowed {
		return ErrForbidden
	}
	return nil
}
