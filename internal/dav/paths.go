package dav

import "strings"

type RouteKind int

const (
	RouteUnknown RouteKind = iota
	RouteRoot
	RoutePrincipal
	RouteCalendarHome
	RouteCalendar
	RouteEvent
	RouteAddressBookHome
	RouteAddressBook
	RouteContact
)

func (k RouteKind) String() string {
	switch k {
	case RouteRoot:
		return "root"
	case RoutePrincipal:
		return "principal"
	case RouteCalendarHome:
		return "calendar-home"
	case RouteCalendar:
		return "calendar"
	case RouteEvent:
		return "event"
	case RouteAddressBookHome:
		return "addressbook-home"
	case RouteAddressBook:
		return "addressbook"
	case RouteContact:
		return "contact"
	default:
		return "unknown"
	}
}

// Route is the parsed form of a DAV request path below the base path.
type Route struct {
	Kind       RouteKind
	Username   string
	Collection string
	Resource   string
}

// ParsePath maps a request path to a Route. The path grammar is
//
//	{base}/
//	{base}/principals/{user}
//	{base}/calendars/{user}[/{calendar-id}[/{event-id}.ics]]
//	{base}/addressbooks/{user}[/{book-id}[/{contact-id}.vcf]]
//
// Anything else is RouteUnknown.
func ParsePath(basePath, p string) Route {
	rel := strings.TrimPrefix(p, basePath)
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return Route{Kind: RouteRoot}
	}

	var segs []string
	for _, s := range strings.Split(rel, "/") {
		if s == "" {
			continue
		}
		if !safeSegment(s) {
			return Route{Kind: RouteUnknown}
		}
		segs = append(segs, s)
	}

	switch segs[0] {
	case "principals":
		if len(segs) == 2 {
			return Route{Kind: RoutePrincipal, Username: segs[1]}
		}
	case "calendars":
		switch len(segs) {
		case 2:
			return Route{Kind: RouteCalendarHome, Username: segs[1]}
		case 3:
			return Route{Kind: RouteCalendar, Username: segs[1], Collection: segs[2]}
		case 4:
			rid, ok := strings.CutSuffix(segs[3], ".ics")
			if ok && rid != "" {
				return Route{Kind: RouteEvent, Username: segs[1], Collection: segs[2], Resource: rid}
			}
		}
	case "addressbooks":
		switch len(segs) {
		case 2:
			return Route{Kind: RouteAddressBookHome, Username: segs[1]}
		case 3:
			return Route{Kind: RouteAddressBook, Username: segs[1], Collection: segs[2]}
		case 4:
			rid, ok := strings.CutSuffix(segs[3], ".vcf")
			if ok && rid != "" {
				return Route{Kind: RouteContact, Username: segs[1], Collection: segs[2], Resource: rid}
			}
		}
	}
	return Route{Kind: RouteUnknown}
}

func safeSegment(s string) bool {
	return !strings.Contains(s, "\\") && s != "." && s != ".."
}
