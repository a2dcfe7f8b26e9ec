package schema

import "time"

const ActivityCollection = "activities"

type ActivityKind string

const (
	ActivityKindPost   ActivityKind = "post"
	ActivityKindReply  ActivityKind = "reply"
	ActivityKindRating ActivityKind = "rating"
)

// Activity records that an identity created a post, a reply or submitted a
// rating. Content is stored elsewhere; this is what quotas, the hourly
// rating cap and interaction checks count.
type Activity struct {
	ID           string       `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Author       string       `json:"author" bson:"author" gorm:"type:varchar(191);not null;index:idx_activity_author,priority:1"`
	Kind         ActivityKind `json:"kind" bson:"kind" gorm:"type:varchar(16);not null;index:idx_activity_author,priority:2"`
	ThreadID     string       `json:"thread_id,omitempty" bson:"thread_id,omitempty" gorm:"type:varchar(191);index"`
	ParentAuthor string       `json:"parent_author,omitempty" bson:"parent_author,omitempty" gorm:"type:varchar(191);index"`
	CreatedAt    time.Time    `json:"created_at" bson:"created_at" gorm:"not null;index:idx_activity_author,priority:3"`
}

func (Activity) TableName() string { return ActivityCollection }
