// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package webapi

import (
	"context"
	"net/url"
)

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Presence string `json:"presence"`
}

// Active reports whether Presence is "active"; anything else is away.
func (u User) Active() bool { return u.Presence == "active" }

type Topic struct {
	Value string `json:"value"`
}

type Channel struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	Topic     Topic    `json:"topic"`
	IsGeneral bool     `json:"is_general"`
	IsMember  bool     `json:"is_member"`
}

type Group struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
	Topic   Topic    `json:"topic"`
}

type IM struct {
	ID   string `json:"id"`
	User string `json:"user"`
}

// Team is the rtm.start snapshot.
type Team struct {
	Self struct {
		ID string `json:"id"`
	} `json:"self"`
	Info struct {
		Name string `json:"name"`
	} `json:"team"`
	Users    []User    `json:"users"`
	Channels []Channel `json:"channels"`
	Groups   []Group   `json:"groups"`
	IMs      []IM      `json:"ims"`
	URL      string    `json:"url"`
}

// User looks up a member by id.
func (t *Team) User(id string) (User, bool) {
	for _, u := range t.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// Start fetches the team snapshot and socket URL from rtm.start.
func (c *Client) Start(ctx context.Context) (*Team, error) {
	var t Team
	if err := c.call(ctx, "rtm.start", nil, true, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

type Reaction struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

type HistoryMessage struct {
	TS        string     `json:"ts"`
	User      string     `json:"user"`
	Text      string     `json:"text"`
	Reactions []Reaction `json:"reactions"`
}

// HistoryMethod picks the history call from the conversation id prefix:
// G for groups, D for direct messages, channels otherwise.
func HistoryMethod(channel string) string {
	if channel != "" {
		switch channel[0] {
		case 'G':
			return "groups.history"
		case 'D':
			return "im.history"
		}
	}
	return "channels.history"
}

// History returns recent messages of channel, newest first as served.
func (c *Client) History(ctx context.Context, channel string) ([]HistoryMessage, error) {
	var r struct {
		Messages []HistoryMessage `json:"messages"`
	}
	err := c.call(ctx, HistoryMethod(channel), url.Values{"channel": {channel}}, true, &r)
	if err != nil {
		return nil, err
	}
	return r.Messages, nil
}
