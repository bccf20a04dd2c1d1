package stub

// JSON shapes returned by the platform API. Only the fields the player
// reads are produced.

type result[T any] struct {
	Result []T `json:"result"`
}

func resultOf[T any](items []T) result[T] {
	if items == nil {
		items = []T{}
	}
	return result[T]{Result: items}
}

type mediaContainer struct {
	ID        int64        `json:"media_container_id"`
	Name      string       `json:"media_container_name"`
	Type      string       `json:"media_container_type"`
	Status    string       `json:"media_container_status"`
	ChannelID int64        `json:"channel_id"`
	Channel   channelInfo  `json:"media_container_channel"`
	User      userInfo     `json:"media_container_user"`
	Streams   []streamInfo `json:"media_container_streams"`
}

type channelInfo struct {
	ChannelID      int64 `json:"channel_id"`
	FollowersCount int64 `json:"followers_count"`
}

type userInfo struct {
	Login        string    `json:"user_login"`
	ProfileImage imageInfo `json:"profile_image"`
}

type imageInfo struct {
	Large  string `json:"large,omitempty"`
	Medium string `json:"medium,omitempty"`
	Small  string `json:"small,omitempty"`
}

type streamInfo struct {
	Media []mediaInfo `json:"stream_media"`
}

type mediaInfo struct {
	Meta mediaMeta `json:"media_meta"`
}

type mediaMeta struct {
	ArchiveURL    string    `json:"media_archive_url"`
	PreviewImages imageInfo `json:"media_preview_archive_images"`
}

type followedChannel struct {
	ChannelID int64 `json:"channel_id"`
}

func toContainer(v VideoRow) mediaContainer {
	return mediaContainer{
		ID:        v.ID,
		Name:      v.Name,
		Type:      "SHORT_VIDEO",
		Status:    "STOPPED",
		ChannelID: v.ChannelID,
		Channel:   channelInfo{ChannelID: v.ChannelID, FollowersCount: v.Channel.Followers},
		User: userInfo{
			Login:        v.Channel.Login,
			ProfileImage: imageInfo{Medium: v.Channel.Avatar},
		},
		Streams: []streamInfo{{Media: []mediaInfo{{Meta: mediaMeta{
			ArchiveURL:    v.Media,
			PreviewImages: imageInfo{Large: v.Preview},
		}}}}},
	}
}
