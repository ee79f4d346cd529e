package chat

import (
	"context"
	"time"
)

// DefaultLocateTimeout bounds how long a send waits for geolocation
const DefaultLocateTimeout = 3 * time.Second

// LocationProvider resolves the user's position. Returning an error or a nil
// location both mean "no location".
type LocationProvider interface {
	Locate(ctx context.Context) (*Location, error)
}

// LocationFunc adapts a function to LocationProvider
type LocationFunc func(ctx context.Context) (*Location, error)

// Locate calls f
func (f LocationFunc) Locate(ctx context.Context) (*Location, error) {
	return f(ctx)
}

// StaticLocation always returns the same position
func StaticLocation(lat, lng float64) LocationProvider {
	return LocationFunc(func(context.Context) (*Location, error) {
		return &Location{Lat: lat, Lng: lng}, nil
	})
}

// locate asks p for a position but never waits longer than timeout. The
// provider runs on its own goroutine so one that ignores ctx cannot stall a send.
func locate(ctx context.Context, p LocationProvider, timeout time.Duration) *Location {
	if p == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan *Location, 1)
	go func() {
		loc, err := p.Locate(ctx)
		if err != nil {
			loc = nil
		}
		ch <- loc
	}()

	select {
	case loc := <-ch:
		return loc
	case <-ctx.Done():
		return nil
	}
}
