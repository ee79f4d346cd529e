package databases

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoPaginate struct {
	limit int64
	page  int64
}

func newMongoPaginate(limit, page int) *mongoPaginate {
	if limit < 1 {
		limit = 1
	}
	if page < 1 {
		page = 1
	}
	return &mongoPaginate{
		limit: int64(limit),
		page:  int64(page),
	}
}

func (mp *mongoPaginate) getPaginatedOpts() *options.FindOptions {
	l := mp.limit
	skip := mp.page*mp.limit - mp.limit
	fOpt := options.FindOptions{Limit: &l, Skip: &skip}

	return &fOpt
}

// newestFirst sorts session lists for the history drawer
func newestFirst(limit, page int) *options.FindOptions {
	return newMongoPaginate(limit, page).getPaginatedOpts().SetSort(bson.D{{Key: "firstMessageAt", Value: -1}})
}

// chronological sorts transcript messages in the order they were written
func chronological() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "sequence", Value: 1}})
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
