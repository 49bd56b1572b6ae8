package dav

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePath(t *testing.T) {
	cases := []struct {
		name string
		path string
		want Route
	}{
		{"root", "/dav/", Route{Kind: RouteRoot}},
		{"root no slash", "/dav", Route{Kind: RouteRoot}},
		{"principal", "/dav/principals/alice", Route{Kind: RoutePrincipal, Username: "alice"}},
		{"calendar home", "/dav/calendars/alice", Route{Kind: RouteCalendarHome, Username: "alice"}},
		{"calendar home trailing slash", "/dav/calendars/alice/", Route{Kind: RouteCalendarHome, Username: "alice"}},
		{"calendar", "/dav/calendars/alice/cal1", Route{Kind: RouteCalendar, Username: "alice", Collection: "cal1"}},
		{"event", "/dav/calendars/alice/cal1/ev1.ics", Route{Kind: RouteEvent, Username: "alice", Collection: "cal1", Resource: "ev1"}},
		{"addressbook home", "/dav/addressbooks/alice", Route{Kind: RouteAddressBookHome, Username: "alice"}},
		{"addressbook", "/dav/addressbooks/alice/ab1", Route{Kind: RouteAddressBook, Username: "alice", Collection: "ab1"}},
		{"contact", "/dav/addressbooks/alice/ab1/ct1.vcf", Route{Kind: RouteContact, Username: "alice", Collection: "ab1", Resource: "ct1"}},
		{"double slash collapsed", "/dav/calendars//alice", Route{Kind: RouteCalendarHome, Username: "alice"}},
		{"event without suffix", "/dav/calendars/alice/cal1/ev1", Route{Kind: RouteUnknown}},
		{"contact with ics suffix", "/dav/addressbooks/alice/ab1/ct1.ics", Route{Kind: RouteUnknown}},
		{"bare suffix", "/dav/calendars/alice/cal1/.ics", Route{Kind: RouteUnknown}},
		{"too deep", "/dav/calendars/alice/cal1/ev1.ics/more", Route{Kind: RouteUnknown}},
		{"unknown top", "/dav/journals/alice", Route{Kind: RouteUnknown}},
		{"principal missing user", "/dav/principals", Route{Kind: RouteUnknown}},
		{"dot segment", "/dav/calendars/alice/..", Route{Kind: RouteUnknown}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParsePath("/dav", tc.path))
		})
	}
}

func TestRouteKindString(t *testing.T) {
	assert.Equal(t, "event", RouteEvent.String())
	assert.Equal(t, "unknown", RouteUnknown.String())
}
