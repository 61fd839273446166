package galleria_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/serjogas/galleria"
	"github.com/serjogas/galleria/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "alice@example.com"

func newGalleryService(t *testing.T, cfg galleria.GalleryConfig) (*galleria.GalleryService, *memory.Repo, *memory.Store) {
	t.Helper()
	repo := memory.NewRepo()
	store := memory.NewStore("http://localhost:9000/test-bucket", 900)
	return galleria.NewGalleryService(repo, store, cfg), repo, store
}

func uploadN(t *testing.T, svc *galleria.GalleryService, n int) {
	t.Helper()
	files := make([]galleria.UploadFile, n)
	for i := range files {
		files[i] = galleria.UploadFile{
			Name:        fmt.Sprintf("img-%d.jpg", i),
			ContentType: "image/jpeg",
			Content:     []byte("fake image bytes"),
		}
	}
	_, err := svc.Upload(context.Background(), owner, files)
	require.NoError(t, err)
}

func TestGalleryService_ListImages(t *testing.T) {
	ctx := context.Background()

	t.Run("limit zero returns everything as one page", func(t *testing.T) {
		svc, _, _ := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: true})
		uploadN(t, svc, 5)

		for _, page := range []int{0, 1, 7} {
			got, err := svc.ListImages(ctx, galleria.ListQuery{Page: page, Filter: owner})
			require.NoError(t, err, "page %d", page)
			assert.Equal(t, 1, got.Total)
			assert.Equal(t, 1, got.Page)
			assert.Len(t, got.Objects, 5)
		}
	})

	t.Run("pagination over five images with limit two", func(t *testing.T) {
		svc, _, _ := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: true})
		uploadN(t, svc, 5)

		got, err := svc.ListImages(ctx, galleria.ListQuery{Page: 1, Limit: 2, Filter: owner})
		require.NoError(t, err)
		assert.Equal(t, 3, got.Total)
		assert.Len(t, got.Objects, 2)

		got, err = svc.ListImages(ctx, galleria.ListQuery{Page: 3, Limit: 2, Filter: owner})
		require.NoError(t, err)
		assert.Equal(t, 3, got.Total)
		assert.Len(t, got.Objects, 1)

		_, err = svc.ListImages(ctx, galleria.ListQuery{Page: 4, Limit: 2, Filter: owner})
		assert.ErrorIs(t, err, galleria.ErrInvalidInput)

		_, err = svc.ListImages(ctx, galleria.ListQuery{Page: 0, Limit: 2, Filter: owner})
		assert.ErrorIs(t, err, galleria.ErrInvalidInput)

		_, err = svc.ListImages(ctx, galleria.ListQuery{Page: -1, Limit: 2, Filter: owner})
		assert.ErrorIs(t, err, galleria.ErrInvalidInput)
	})

	t.Run("pages are disjoint and ordered", func(t *testing.T) {
		svc, _, _ := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: true})
		uploadN(t, svc, 5)

		var all []string
		for page := 1; page <= 3; page++ {
			got, err := svc.ListImages(ctx, galleria.ListQuery{Page: page, Limit: 2, Filter: owner})
			require.NoError(t, err)
			all = append(all, got.Objects...)
		}

		full, err := svc.ListImages(ctx, galleria.ListQuery{Filter: owner})
		require.NoError(t, err)
		assert.Equal(t, full.Objects, all)
	})

	t.Run("default filter selects the aggregate record", func(t *testing.T) {
		svc, _, _ := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: true})
		uploadN(t, svc, 3)

		got, err := svc.ListImages(ctx, galleria.ListQuery{})
		require.NoError(t, err)
		assert.Len(t, got.Objects, 3)
	})

	t.Run("unknown filter", func(t *testing.T) {
		svc, _, _ := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: true})

		_, err := svc.ListImages(ctx, galleria.ListQuery{Filter: "nobody@example.com"})
		assert.ErrorIs(t, err, galleria.ErrNotFound)
	})

	t.Run("record with zero images", func(t *testing.T) {
		svc, repo, _ := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: true})
		require.NoError(t, repo.CreateUser(ctx, galleria.UserRecord{Email: owner}))

		_, err := svc.ListImages(ctx, galleria.ListQuery{Filter: owner})
		assert.ErrorIs(t, err, galleria.ErrNotFound)
	})

	t.Run("negative limit", func(t *testing.T) {
		svc, _, _ := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: true})

		_, err := svc.ListImages(ctx, galleria.ListQuery{Limit: -1, Filter: owner})
		assert.ErrorIs(t, err, galleria.ErrInvalidInput)
	})
}

func TestGalleryService_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("stores objects and appends to owner and aggregate", func(t *testing.T) {
		svc, repo, store := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: true})

		result, err := svc.Upload(ctx, owner, []galleria.UploadFile{
			{Name: "cat.jpg", ContentType: "image/jpeg", Content: []byte("cat")},
			{Name: "dog.png", ContentType: "image/png", Content: []byte("dog")},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"cat.jpg", "dog.png"}, result.Uploaded)
		assert.Contains(t, result.Summary(), "cat.jpg")

		exists, err := store.Exists(ctx, galleria.ObjectKey(owner, "cat.jpg"))
		require.NoError(t, err)
		assert.True(t, exists)

		ownerRec, err := repo.GetUser(ctx, owner)
		require.NoError(t, err)
		require.Len(t, ownerRec.Images, 2)

		aggRec, err := repo.GetUser(ctx, galleria.AggregateKey)
		require.NoError(t, err)
		require.Len(t, aggRec.Images, 2)

		// Both records carry the same entries under the same IDs.
		assert.Equal(t, ownerRec.Images, aggRec.Images)

		entry := ownerRec.Images[0]
		assert.Equal(t, galleria.ImageClosed, entry.Status)
		assert.NotContains(t, entry.Path, "?", "stored path must be canonical")

		info, err := galleria.DecodeMetadata(entry.Metadata)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", info.ContentType)
		assert.Equal(t, int64(3), info.ContentLength)
	})

	t.Run("empty batch", func(t *testing.T) {
		svc, _, _ := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: true})

		_, err := svc.Upload(ctx, owner, nil)
		assert.ErrorIs(t, err, galleria.ErrInvalidInput)
	})

	t.Run("duplicate key is a no-op", func(t *testing.T) {
		svc, repo, _ := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: true})

		_, err := svc.Upload(ctx, owner, []galleria.UploadFile{
			{Name: "cat.jpg", ContentType: "image/jpeg", Content: []byte("cat")},
		})
		require.NoError(t, err)

		result, err := svc.Upload(ctx, owner, []galleria.UploadFile{
			{Name: "cat.jpg", ContentType: "image/jpeg", Content: []byte("cat again")},
			{Name: "new.jpg", ContentType: "image/jpeg", Content: []byte("new")},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"new.jpg"}, result.Uploaded)

		rec, err := repo.GetUser(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, rec.Images, 2)
	})

	t.Run("all duplicates fails the batch", func(t *testing.T) {
		svc, _, _ := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: true})

		files := []galleria.UploadFile{
			{Name: "cat.jpg", ContentType: "image/jpeg", Content: []byte("cat")},
		}
		_, err := svc.Upload(ctx, owner, files)
		require.NoError(t, err)

		_, err = svc.Upload(ctx, owner, files)
		assert.ErrorIs(t, err, galleria.ErrInvalidInput)
	})

	t.Run("skip disabled appends unconditionally", func(t *testing.T) {
		svc, repo, _ := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: false})

		files := []galleria.UploadFile{
			{Name: "cat.jpg", ContentType: "image/jpeg", Content: []byte("cat")},
		}
		_, err := svc.Upload(ctx, owner, files)
		require.NoError(t, err)
		_, err = svc.Upload(ctx, owner, files)
		require.NoError(t, err)

		rec, err := repo.GetUser(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, rec.Images, 2)
	})

	t.Run("file without a name", func(t *testing.T) {
		svc, _, _ := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: true})

		_, err := svc.Upload(ctx, owner, []galleria.UploadFile{{Content: []byte("x")}})
		assert.ErrorIs(t, err, galleria.ErrInvalidInput)
	})
}

func TestGalleryService_PresignedUploadFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("reserve, put, complete", func(t *testing.T) {
		svc, repo, store := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: true})

		ticket, err := svc.CreateUploadURL(ctx, owner, "cat.jpg", "image/jpeg")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, ticket.ID)
		assert.Contains(t, ticket.UploadURL, "?", "upload URL must be signed")
		assert.NotContains(t, ticket.Path, "?")

		rec, err := repo.GetUser(ctx, owner)
		require.NoError(t, err)
		require.Len(t, rec.Images, 1)
		assert.Equal(t, galleria.ImageOpen, rec.Images[0].Status)

		// Client-side PUT against the signed URL.
		key := galleria.ObjectKey(owner, "cat.jpg")
		require.NoError(t, store.Put(ctx, key, "image/jpeg", strings.NewReader("cat bytes")))

		require.NoError(t, svc.CompleteUpload(ctx, owner, ticket.ID))

		rec, err = repo.GetUser(ctx, owner)
		require.NoError(t, err)
		require.Len(t, rec.Images, 1)
		assert.Equal(t, galleria.ImageClosed, rec.Images[0].Status)

		info, err := galleria.DecodeMetadata(rec.Images[0].Metadata)
		require.NoError(t, err)
		assert.Equal(t, int64(len("cat bytes")), info.ContentLength)

		// The aggregate copy is closed too.
		agg, err := repo.GetUser(ctx, galleria.AggregateKey)
		require.NoError(t, err)
		require.Len(t, agg.Images, 1)
		assert.Equal(t, galleria.ImageClosed, agg.Images[0].Status)
	})

	t.Run("complete unknown id", func(t *testing.T) {
		svc, _, _ := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: true})
		uploadN(t, svc, 1)

		err := svc.CompleteUpload(ctx, owner, uuid.New())
		assert.ErrorIs(t, err, galleria.ErrNotFound)
	})

	t.Run("complete before the object exists", func(t *testing.T) {
		svc, _, _ := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: true})

		ticket, err := svc.CreateUploadURL(ctx, owner, "cat.jpg", "image/jpeg")
		require.NoError(t, err)

		err = svc.CompleteUpload(ctx, owner, ticket.ID)
		assert.ErrorIs(t, err, galleria.ErrNotFound)
	})

	t.Run("complete twice", func(t *testing.T) {
		svc, _, store := newGalleryService(t, galleria.GalleryConfig{SkipDuplicates: true})

		ticket, err := svc.CreateUploadURL(ctx, owner, "cat.jpg", "image/jpeg")
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, galleria.ObjectKey(owner, "cat.jpg"), "image/jpeg", strings.NewReader("x")))
		require.NoError(t, svc.CompleteUpload(ctx, owner, ticket.ID))

		// The entry is CLOSED now, so there is no OPEN slot to complete.
		err = svc.CompleteUpload(ctx, owner, ticket.ID)
		assert.ErrorIs(t, err, galleria.ErrNotFound)
	})
}
