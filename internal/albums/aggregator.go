// Package albums collects the photos of one Telegram media group into
// a single batch. Telegram delivers album photos as separate updates
// with a shared media group id, so the batch is flushed after a short
// quiet period.
package albums

import (
	"fmt"
	"sync"
	"time"
)

type Photo struct {
	ChatID   int64
	UserID   int64
	Username string
	AlbumID  string
	Caption  string
	FileID   string
}

type Album struct {
	ChatID   int64
	UserID   int64
	Username string
	Caption  string
	FileIDs  []string
}

type Options struct {
	Debounce time.Duration
	OnFlush  func(Album)
}

type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	onFlush  func(Album)
	pending  map[string]*pendingAlbum
}

type pendingAlbum struct {
	album Album
	timer *time.Timer
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}

	return &Aggregator{
		debounce: debounce,
		onFlush:  opts.OnFlush,
		pending:  make(map[string]*pendingAlbum),
	}
}

// Add registers one album photo and restarts the flush timer.
func (a *Aggregator) Add(photo Photo) {
	if photo.AlbumID == "" || photo.FileID == "" {
		return
	}

	key := makeKey(photo.ChatID, photo.AlbumID)

	a.mu.Lock()
	defer a.mu.Unlock()

	pa, ok := a.pending[key]
	if !ok {
		pa = &pendingAlbum{
			album: Album{
				ChatID:   photo.ChatID,
				UserID:   photo.UserID,
				Username: photo.Username,
				Caption:  photo.Caption,
				FileIDs:  []string{photo.FileID},
			},
		}
		a.pending[key] = pa
	} else {
		pa.album.FileIDs = append(pa.album.FileIDs, photo.FileID)
		if photo.Caption != "" {
			pa.album.Caption = photo.Caption
		}
	}

	if pa.timer != nil {
		pa.timer.Stop()
	}
	pa.timer = time.AfterFunc(a.debounce, func() {
		a.flush(key)
	})
}

func (a *Aggregator) flush(key string) {
	a.mu.Lock()
	pa, ok := a.pending[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.pending, key)
	album := pa.album
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush != nil {
		onFlush(album)
	}
}

func makeKey(chatID int64, albumID string) string {
	return fmt.Sprintf("%d:%s", chatID, albumID)
}
