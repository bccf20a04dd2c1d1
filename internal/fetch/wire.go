package fetch

import (
	"strconv"

	"github.com/samber/lo"
	"golang.org/x/text/message"

	"github.com/abelbrown/reel/internal/feed"
)

// Response bodies of the video platform API. Every endpoint wraps its
// payload in {"result": ...}.

type mediaContainerPage struct {
	Result []mediaContainer `json:"result"`
}

type mediaContainer struct {
	ID      int64         `json:"media_container_id"`
	Name    string        `json:"media_container_name"`
	ChanID  int64         `json:"channel_id"`
	Channel *mediaChannel `json:"media_container_channel"`
	User    *mediaUser    `json:"media_container_user"`
	Streams []mediaStream `json:"media_container_streams"`
}

type mediaChannel struct {
	ChannelID      int64  `json:"channel_id"`
	FollowersCount *int64 `json:"followers_count"`
}

type mediaUser struct {
	Login        string    `json:"user_login"`
	ProfileImage *imageSet `json:"profile_image"`
}

type mediaStream struct {
	Media []streamMedia `json:"stream_media"`
}

type streamMedia struct {
	Meta *mediaMeta `json:"media_meta"`
}

type mediaMeta struct {
	ArchiveURL    string    `json:"media_archive_url"`
	PreviewImages *imageSet `json:"media_preview_archive_images"`
}

type imageSet struct {
	Large  string `json:"large"`
	Medium string `json:"medium"`
	Small  string `json:"small"`
}

type followedChannelsPage struct {
	Result []followedChannel `json:"result"`
}

type followedChannel struct {
	ChannelID int64 `json:"channel_id"`
}

// firstMeta returns the metadata of the first media of the first stream.
func (mc mediaContainer) firstMeta() *mediaMeta {
	if len(mc.Streams) == 0 || len(mc.Streams[0].Media) == 0 {
		return nil
	}
	return mc.Streams[0].Media[0].Meta
}

func (mc mediaContainer) channelID() int64 {
	if mc.ChanID != 0 {
		return mc.ChanID
	}
	if mc.Channel != nil {
		return mc.Channel.ChannelID
	}
	return 0
}

// toItem maps one container. Containers without an id cannot be compared
// for pagination and are skipped.
func toItem(mc mediaContainer, p *message.Printer) (feed.Item, bool) {
	if mc.ID == 0 {
		return feed.Item{}, false
	}

	it := feed.Item{
		ID:    strconv.FormatInt(mc.ID, 10),
		Title: mc.Name,
	}
	if ch := mc.channelID(); ch != 0 {
		it.ChannelID = strconv.FormatInt(ch, 10)
	}
	if meta := mc.firstMeta(); meta != nil {
		it.MediaURL = meta.ArchiveURL
		if meta.PreviewImages != nil {
			it.PreviewURL, _ = lo.Coalesce(meta.PreviewImages.Large, meta.PreviewImages.Medium, meta.PreviewImages.Small)
		}
	}
	if mc.User != nil {
		it.ChannelName = mc.User.Login
		if mc.User.ProfileImage != nil {
			it.AvatarURL, _ = lo.Coalesce(mc.User.ProfileImage.Medium, mc.User.ProfileImage.Small)
		}
	}
	if mc.Channel != nil && mc.Channel.FollowersCount != nil {
		it.Followers = p.Sprintf("%d", *mc.Channel.FollowersCount)
	}
	return it, true
}

func toItems(page mediaContainerPage, p *message.Printer) []feed.Item {
	return lo.FilterMap(page.Result, func(mc mediaContainer, _ int) (feed.Item, bool) {
		return toItem(mc, p)
	})
}

func toChannelIDs(page followedChannelsPage) []string {
	return lo.FilterMap(page.Result, func(fc followedChannel, _ int) (string, bool) {
		return strconv.FormatInt(fc.ChannelID, 10), fc.ChannelID != 0
	})
}
