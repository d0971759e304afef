package model

import "time"

// Profile はアカウントに紐づく公開プロフィールを表す。
// accountごとに高々1件で、UPSERTにより更新される。
type Profile struct {
	AccountID string
	FullName  string
	Bio       string
	UpdatedAt time.Time
}

// Notification は記録済みの通知を表す。
type Notification struct {
	ID        string
	AccountID string
	Channel   string
	Message   string
	CreatedAt time.Time
}

// Report はアカウントの集計レポートを表す。
// Profileは未作成の場合nilとなる。
type Report struct {
	AccountID         string
	Login             string
	Status            AccountStatus
	RegisteredAt      time.Time
	Profile           *Profile
	NotificationCount int
	GeneratedAt       time.Time
}
