package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"forum-backend/internal/event"
	"forum-backend/internal/model"
	"forum-backend/internal/repository"
)

type fakeCategories struct {
	mu    sync.Mutex
	items map[string]model.Category
}

func newFakeCategories(cats ...model.Category) *fakeCategories {
	f := &fakeCategories{items: make(map[string]model.Category)}
	for _, c := range cats {
		f.items[c.ID] = c
	}
	return f
}

func (f *fakeCategories) Create(_ context.Context, c model.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[c.ID] = c
	return nil
}

func (f *fakeCategories) FindByID(_ context.Context, id string) (model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return model.Category{}, model.ErrCategoryNotFound
	}
	return c, nil
}

func (f *fakeCategories) List(_ context.Context) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Category, 0, len(f.items))
	for _, c := range f.items {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCategories) Update(_ context.Context, c model.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[c.ID]; !ok {
		return model.ErrCategoryNotFound
	}
	f.items[c.ID] = c
	return nil
}

func (f *fakeCategories) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return model.ErrCategoryNotFound
	}
	delete(f.items, id)
	return nil
}

// fakeContent backs both ThreadStore and PostStore so thread deletion can
// cascade the way the database does.
type fakeContent struct {
	mu      sync.Mutex
	threads map[string]model.Thread
	posts   map[string]model.Post
}

func newFakeContent() *fakeContent {
	return &fakeContent{threads: make(map[string]model.Thread), posts: make(map[string]model.Post)}
}

type fakeThreads struct{ *fakeContent }

type fakePosts struct{ *fakeContent }

func (f fakeThreads) Create(_ context.Context, t model.Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads[t.ID] = t
	return nil
}

func (f fakeThreads) FindByID(_ context.Context, id string) (model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.threads[id]
	if !ok {
		return model.Thread{}, model.ErrThreadNotFound
	}
	for _, p := range f.posts {
		if p.ThreadID == id {
			t.PostCount++
		}
	}
	return t, nil
}

func (f fakeThreads) List(_ context.Context, categoryID string) ([]model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Thread, 0)
	for _, t := range f.threads {
		if categoryID == "" || t.CategoryID == categoryID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f fakeThreads) Update(_ context.Context, t model.Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.threads[t.ID]; !ok {
		return model.ErrThreadNotFound
	}
	f.threads[t.ID] = t
	return nil
}

func (f fakeThreads) Delete(_ context.Context, id string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.threads[id]; !ok {
		return nil, model.ErrThreadNotFound
	}
	keys := make([]string, 0)
	for pid, p := range f.posts {
		if p.ThreadID == id {
			if p.Attachment != "" {
				keys = append(keys, p.Attachment)
			}
			delete(f.posts, pid)
		}
	}
	delete(f.threads, id)
	return keys, nil
}

func (f fakePosts) Create(_ context.Context, p model.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[p.ID] = p
	return nil
}

func (f fakePosts) FindByID(_ context.Context, id string) (model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return model.Post{}, model.ErrPostNotFound
	}
	return p, nil
}

func (f fakePosts) ListByThread(_ context.Context, threadID string) ([]model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Post, 0)
	for _, p := range f.posts {
		if p.ThreadID == threadID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f fakePosts) UpdateContent(_ context.Context, id string, content string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return model.ErrPostNotFound
	}
	p.Content, p.UpdatedAt = content, now
	f.posts[id] = p
	return nil
}

func (f fakePosts) SetAttachment(_ context.Context, id string, key string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return model.ErrPostNotFound
	}
	p.Attachment, p.UpdatedAt = key, now
	f.posts[id] = p
	return nil
}

func (f fakePosts) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[id]; !ok {
		return model.ErrPostNotFound
	}
	delete(f.posts, id)
	return nil
}

type fakeLikes struct {
	mu    sync.Mutex
	likes map[string]model.Like
}

func newFakeLikes() *fakeLikes {
	return &fakeLikes{likes: make(map[string]model.Like)}
}

func likeKey(userID, targetType, targetID string) string {
	return userID + "|" + targetType + "|" + targetID
}

func (f *fakeLikes) Toggle(_ context.Context, like model.Like) (string, model.Like, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := likeKey(like.UserID, like.TargetType, like.TargetID)
	existing, ok := f.likes[key]
	switch {
	case !ok:
		f.likes[key] = like
		return repository.LikeCreated, like, nil
	case existing.Value == like.Value:
		delete(f.likes, key)
		return repository.LikeRemoved, existing, nil
	default:
		existing.Value = like.Value
		f.likes[key] = existing
		return repository.LikeUpdated, existing, nil
	}
}

func (f *fakeLikes) Counts(_ context.Context, targetType string, targetID string, userID string) (model.LikeCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var counts model.LikeCounts
	for _, l := range f.likes {
		if l.TargetType != targetType || l.TargetID != targetID {
			continue
		}
		if l.Value > 0 {
			counts.Likes++
		} else {
			counts.Dislikes++
		}
		if userID != "" && l.UserID == userID {
			v := l.Value
			counts.UserReaction = &v
		}
	}
	return counts, nil
}

type fakeReports struct {
	mu      sync.Mutex
	reports map[string]model.Report
}

func newFakeReports() *fakeReports {
	return &fakeReports{reports: make(map[string]model.Report)}
}

func (f *fakeReports) Create(_ context.Context, rep model.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reports {
		if r.Status == model.ReportPending && r.ReporterID == rep.ReporterID &&
			r.TargetType == rep.TargetType && r.TargetID == rep.TargetID {
			return model.ErrDuplicateReport
		}
	}
	f.reports[rep.ID] = rep
	return nil
}

func (f *fakeReports) FindByID(_ context.Context, id string) (model.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return model.Report{}, model.ErrReportNotFound
	}
	return r, nil
}

func (f *fakeReports) List(_ context.Context, query model.ReportQuery) ([]model.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Report, 0)
	for _, r := range f.reports {
		if query.Status != "" && r.Status != query.Status {
			continue
		}
		if query.TargetType != "" && r.TargetType != query.TargetType {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeReports) UpdateStatus(_ context.Context, id string, status string, notes string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return model.ErrReportNotFound
	}
	r.Status, r.UpdatedAt = status, now
	if notes != "" {
		r.AdminNotes = notes
	}
	f.reports[id] = r
	return nil
}

func (f *fakeReports) AppendNote(_ context.Context, id string, note string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return model.ErrReportNotFound
	}
	r.AdminNotes = strings.TrimPrefix(r.AdminNotes+"\n"+note, "\n")
	if r.Status == model.ReportPending {
		r.Status = model.ReportReviewed
	}
	r.UpdatedAt = now
	f.reports[id] = r
	return nil
}

type fakeNotifications struct {
	mu    sync.Mutex
	items []model.Notification
	err   error
}

func (f *fakeNotifications) Insert(_ context.Context, n model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.items = append(f.items, n)
	return nil
}

func (f *fakeNotifications) List(_ context.Context, query model.NotificationQuery) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Notification, 0)
	for _, n := range f.items {
		if n.UserID != query.UserID || (query.UnreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	if query.Offset >= len(out) {
		return []model.Notification{}, nil
	}
	out = out[query.Offset:]
	if len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, userID string, ids []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var n int64
	for i := range f.items {
		item := &f.items[i]
		if item.UserID != userID || item.IsRead {
			continue
		}
		if len(ids) == 0 || want[item.ID] {
			item.IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) all() []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Notification(nil), f.items...)
}

type fakeBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (f *fakeBus) Publish(e event.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeBus) Subscribe() (<-chan event.Event, func()) {
	ch := make(chan event.Event)
	return ch, func() {}
}

func (f *fakeBus) published() []event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event.Event(nil), f.events...)
}
