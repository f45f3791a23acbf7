package domain

import (
	"time"
)

type directory map[MemberID]*Member

func (d directory) Member(id MemberID) *Member { return d[id] }

type presence map[MemberID]bool

func (p presence) IsOnline(id MemberID) bool { return p[id] }

type testApp struct {
	user    *Member
	members directory
	online  presence
}

func newTestApp(user MemberID, members ...*Member) *testApp {
	app := &testApp{
		members: directory{},
		online:  presence{},
	}
	for _, m := range members {
		app.members[m.ID] = m
		if m.ID == user {
			app.user = m
		}
	}
	return app
}

func (a *testApp) CurrentUser() *Member { return a.user }
func (a *testApp) Members() Directory   { return a.members }
func (a *testApp) Lang() Localizer      { return nil }
func (a *testApp) Presence() Presence   { return a.online }

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return epoch.Add(time.Duration(minutes) * time.Minute)
}

func msg(gid string, sender MemberID, minutes int) *Message {
	return &Message{
		GID:      gid,
		SenderID: sender,
		Type:     MessageTypeText,
		Content:  "hello " + gid,
		Date:     at(minutes),
	}
}
