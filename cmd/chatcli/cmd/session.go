package cmd

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/linesmerrill/clinic-chat-api/chat"
	"github.com/linesmerrill/clinic-chat-api/logging"
)

// session is an open widget plus what it was built from
type session struct {
	widget  *chat.Widget
	gateway *chat.HTTPGateway
	store   *chat.PebbleStore
	log     *zap.SugaredLogger
	conf    settings
}

func openSession(conf settings) (*session, error) {
	log := logging.New(conf.Verbose)

	locator, err := parseLocation(conf.Location)
	if err != nil {
		return nil, err
	}
	store, err := chat.OpenPebbleStore(conf.DataDir, nil)
	if err != nil {
		return nil, err
	}

	gateway := chat.NewHTTPGateway(conf.BaseURL)
	widget := chat.NewWidget(chat.Options{
		Gateway: gateway,
		Store:   store,
		Locator: locator,
		Locale:  conf.Locale,
		Logger:  log,
	})
	widget.SetIdentity(conf.UserID, conf.Token)

	return &session{widget: widget, gateway: gateway, store: store, log: log, conf: conf}, nil
}

func (s *session) Close() {
	s.widget.Close()
	if err := s.store.Close(); err != nil {
		s.log.Warnw("failed to close session store", "error", err)
	}
}

// parseLocation reads "lat,lng"; empty means no location
func parseLocation(v string) (chat.LocationProvider, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	latStr, lngStr, ok := strings.Cut(v, ",")
	if !ok {
		return nil, fmt.Errorf("location %q must be lat,lng", v)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("invalid latitude in %q", v)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("invalid longitude in %q", v)
	}
	return chat.StaticLocation(lat, lng), nil
}

var (
	tagPattern   = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</li>`)
	anyTag       = regexp.MustCompile(`<[^>]*>`)
	blankPattern = regexp.MustCompile(`\n{3,}`)
)

// plainText renders assistant markup for a terminal
func plainText(m chat.Message) string {
	if !m.IsMarkup {
		return m.Body
	}
	out := tagPattern.ReplaceAllString(m.Body, "\n")
	out = anyTag.ReplaceAllString(out, "")
	out = blankPattern.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func printMessages(w io.Writer, msgs []chat.Message) {
	for _, m := range msgs {
		printMessage(w, m)
	}
}

func printMessage(w io.Writer, m chat.Message) {
	switch m.Origin {
	case chat.OriginUser:
		fmt.Fprintf(w, "you> %s\n", m.Body)
		if m.ImageRef != "" {
			fmt.Fprintf(w, "     [image] %s\n", m.ImageRef)
		}
	default:
		fmt.Fprintf(w, "bot> %s\n", plainText(m))
		if m.Feedback != chat.FeedbackUnset {
			fmt.Fprintf(w, "     (%s feedback) id=%s\n", m.Feedback, m.ID)
		} else {
			fmt.Fprintf(w, "     id=%s\n", m.ID)
		}
	}
}
