package profile

import "time"

type Profile struct {
	UserID      string     `bson:"userId" json:"userId"`
	DisplayName string     `bson:"displayName" json:"displayName"`
	AvatarURL   string     `bson:"avatarUrl" json:"avatarUrl"`
	Email       string     `bson:"email" json:"email"`
	LastSeenAt  *time.Time `bson:"lastSeenAt,omitempty" json:"lastSeenAt"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

type SyncRequest struct {
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	Email       string `json:"email"`
}
