package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const storyIDLength = 16

// DeriveStoryID строит стабильный идентификатор истории из тройки
// (source_id, platform, publish_time). Чистая функция: одинаковые входы
// всегда дают одинаковый идентификатор.
func DeriveStoryID(sourceID, platform string, publishedAt time.Time) StoryID {
	canonical := fmt.Sprintf("%s|%s|%d", sourceID, platform, publishedAt.Unix())
	sum := sha256.Sum256([]byte(canonical))
	return StoryID(hex.EncodeToString(sum[:])[:storyIDLength])
}
