package cascade

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"edumedia/apierr"
	"edumedia/database/databasetest"
	"edumedia/logger"
	"edumedia/models"
	"edumedia/storage/storagetest"
)

func setupEngine(t *testing.T) (*Engine, *gorm.DB, *storagetest.Fake) {
	db := databasetest.New(t)
	blobs := storagetest.New()
	return New(db, blobs, logger.NewNop()), db, blobs
}

func createPdf(t *testing.T, db *gorm.DB, blobs *storagetest.Fake, ref models.ParentRef) *models.PdfAttachment {
	obj, err := blobs.Put(context.Background(), "pdfs/"+string(ref.Type)+"/"+ref.ID, "doc.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	pdf := &models.PdfAttachment{
		ParentType:   ref.Type,
		ParentID:     ref.ID,
		Title:        "doc",
		URL:          obj.URL,
		StoredName:   obj.Key,
		OriginalName: "doc.pdf",
		Size:         obj.Size,
		MimeType:     "application/pdf",
	}
	require.NoError(t, db.Create(pdf).Error)
	return pdf
}

type tree struct {
	article  *models.Article
	chapters []*models.Chapter
	topics   []*models.Topic
	contents []*models.Content
	pdfs     []*models.PdfAttachment
}

// buildTree creates an article with n chapters, m topics per chapter and k
// contents per topic, with one pdf on every node.
func buildTree(t *testing.T, db *gorm.DB, blobs *storagetest.Fake, title string, n, m, k int) *tree {
	tr := &tree{article: &models.Article{Title: title}}
	require.NoError(t, db.Create(tr.article).Error)
	tr.pdfs = append(tr.pdfs, createPdf(t, db, blobs, models.ParentRef{Type: models.ParentArticle, ID: tr.article.ID}))

	for i := 0; i < n; i++ {
		ch := &models.Chapter{ArticleID: tr.article.ID, Title: fmt.Sprintf("ch %d", i), Order: i}
		require.NoError(t, db.Create(ch).Error)
		tr.chapters = append(tr.chapters, ch)
		tr.pdfs = append(tr.pdfs, createPdf(t, db, blobs, models.ParentRef{Type: models.ParentChapter, ID: ch.ID}))

		for j := 0; j < m; j++ {
			tp := &models.Topic{ChapterID: ch.ID, Title: fmt.Sprintf("tp %d.%d", i, j)}
			require.NoError(t, db.Create(tp).Error)
			tr.topics = append(tr.topics, tp)
			tr.pdfs = append(tr.pdfs, createPdf(t, db, blobs, models.ParentRef{Type: models.ParentTopic, ID: tp.ID}))

			for l := 0; l < k; l++ {
				ct := &models.Content{TopicID: tp.ID, Body: "body"}
				require.NoError(t, db.Create(ct).Error)
				tr.contents = append(tr.contents, ct)
				tr.pdfs = append(tr.pdfs, createPdf(t, db, blobs, models.ParentRef{Type: models.ParentContent, ID: ct.ID}))
			}
		}
	}
	return tr
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestDeleteArticleRemovesWholeSubtree(t *testing.T) {
	shapes := [][3]int{{0, 0, 0}, {1, 0, 0}, {2, 3, 0}, {2, 2, 3}, {3, 1, 4}}

	for _, s := range shapes {
		t.Run(fmt.Sprintf("%dx%dx%d", s[0], s[1], s[2]), func(t *testing.T) {
			engine, db, blobs := setupEngine(t)
			target := buildTree(t, db, blobs, "target", s[0], s[1], s[2])
			other := buildTree(t, db, blobs, "other", 1, 1, 1)

			require.NoError(t, engine.DeleteNode(context.Background(), models.ParentRef{Type: models.ParentArticle, ID: target.article.ID}))

			assert.Equal(t, int64(1), count(t, db, &models.Article{}))
			assert.Equal(t, int64(len(other.chapters)), count(t, db, &models.Chapter{}))
			assert.Equal(t, int64(len(other.topics)), count(t, db, &models.Topic{}))
			assert.Equal(t, int64(len(other.contents)), count(t, db, &models.Content{}))
			assert.Equal(t, int64(len(other.pdfs)), count(t, db, &models.PdfAttachment{}))

			for _, pdf := range target.pdfs {
				assert.False(t, blobs.Has(pdf.StoredName), "blob %s should be gone", pdf.StoredName)
			}
			for _, pdf := range other.pdfs {
				assert.True(t, blobs.Has(pdf.StoredName))
			}
		})
	}
}

func TestDeleteChapterKeepsSiblings(t *testing.T) {
	engine, db, blobs := setupEngine(t)
	tr := buildTree(t, db, blobs, "a", 2, 2, 2)
	doomed := tr.chapters[0]

	require.NoError(t, engine.DeleteNode(context.Background(), models.ParentRef{Type: models.ParentChapter, ID: doomed.ID}))

	assert.Equal(t, int64(1), count(t, db, &models.Article{}))
	assert.Equal(t, int64(1), count(t, db, &models.Chapter{}))
	assert.Equal(t, int64(2), count(t, db, &models.Topic{}))
	assert.Equal(t, int64(4), count(t, db, &models.Content{}))

	var remaining int64
	db.Model(&models.Topic{}).Where("chapter_id = ?", doomed.ID).Count(&remaining)
	assert.Zero(t, remaining)

	// article pdf + surviving chapter + 2 topics + 4 contents
	assert.Equal(t, int64(1+1+2+4), count(t, db, &models.PdfAttachment{}))
}

func TestDeleteTopicAndContent(t *testing.T) {
	engine, db, blobs := setupEngine(t)
	tr := buildTree(t, db, blobs, "a", 1, 2, 2)
	ctx := context.Background()

	require.NoError(t, engine.DeleteNode(ctx, models.ParentRef{Type: models.ParentTopic, ID: tr.topics[0].ID}))
	assert.Equal(t, int64(1), count(t, db, &models.Topic{}))
	assert.Equal(t, int64(2), count(t, db, &models.Content{}))

	leaf := tr.contents[3]
	require.NoError(t, engine.DeleteNode(ctx, models.ParentRef{Type: models.ParentContent, ID: leaf.ID}))
	assert.Equal(t, int64(1), count(t, db, &models.Content{}))

	var pdfs int64
	db.Model(&models.PdfAttachment{}).Where("parent_id = ?", leaf.ID).Count(&pdfs)
	assert.Zero(t, pdfs)
}

func TestDeleteMissingNodesIsIdempotent(t *testing.T) {
	engine, _, _ := setupEngine(t)
	ctx := context.Background()

	assert.NoError(t, engine.DeleteNode(ctx, models.ParentRef{Type: models.ParentArticle, ID: "missing"}))
	assert.NoError(t, engine.DeleteNode(ctx, models.ParentRef{Type: models.ParentChapter, ID: "missing"}))
	assert.NoError(t, engine.DeleteNode(ctx, models.ParentRef{Type: models.ParentTopic, ID: "missing"}))
	assert.NoError(t, engine.DeleteNode(ctx, models.ParentRef{Type: models.ParentContent, ID: "missing"}))
}

func TestDeleteNodeRejectsUnknownType(t *testing.T) {
	engine, _, _ := setupEngine(t)
	err := engine.DeleteNode(context.Background(), models.ParentRef{Type: "gallery", ID: "x"})
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))
}

func TestDeleteMissingSingleRootsAreNotFound(t *testing.T) {
	engine, _, _ := setupEngine(t)
	ctx := context.Background()

	assert.True(t, apierr.IsKind(engine.DeleteGalleryFolder(ctx, "missing"), apierr.KindNotFound))
	assert.True(t, apierr.IsKind(engine.DeletePdf(ctx, "missing"), apierr.KindNotFound))
	assert.True(t, apierr.IsKind(engine.DeleteGalleryImage(ctx, "missing"), apierr.KindNotFound))
}

func TestBlobFailureDoesNotBlockRecordDelete(t *testing.T) {
	engine, db, blobs := setupEngine(t)
	tr := buildTree(t, db, blobs, "a", 1, 1, 1)
	blobs.FailDeletes = true

	require.NoError(t, engine.DeleteNode(context.Background(), models.ParentRef{Type: models.ParentArticle, ID: tr.article.ID}))

	assert.Zero(t, count(t, db, &models.Article{}))
	assert.Zero(t, count(t, db, &models.PdfAttachment{}))
	// blobs are left behind, records are gone
	assert.Equal(t, len(tr.pdfs), blobs.Count())
}

// orderingStore records, at blob delete time, whether the record pointing at
// the blob still exists.
type orderingStore struct {
	*storagetest.Fake
	db            *gorm.DB
	recordPresent map[string]bool
}

func (s *orderingStore) Delete(ctx context.Context, key string) error {
	var n int64
	s.db.Model(&models.PdfAttachment{}).Where("stored_name = ?", key).Count(&n)
	s.recordPresent[key] = n > 0
	return s.Fake.Delete(ctx, key)
}

func TestBlobsDeletedBeforeRecords(t *testing.T) {
	db := databasetest.New(t)
	fake := storagetest.New()
	store := &orderingStore{Fake: fake, db: db, recordPresent: map[string]bool{}}
	engine := New(db, store, logger.NewNop())
	tr := buildTree(t, db, fake, "a", 1, 1, 1)

	require.NoError(t, engine.DeleteNode(context.Background(), models.ParentRef{Type: models.ParentArticle, ID: tr.article.ID}))

	require.Len(t, store.recordPresent, len(tr.pdfs))
	for key, present := range store.recordPresent {
		assert.True(t, present, "record for %s deleted before its blob", key)
	}
}

func TestResolveCollectsDescendants(t *testing.T) {
	engine, db, blobs := setupEngine(t)
	tr := buildTree(t, db, blobs, "a", 2, 2, 1)

	plan, err := engine.Resolve(context.Background(), models.ParentRef{Type: models.ParentArticle, ID: tr.article.ID})
	require.NoError(t, err)

	assert.Equal(t, 2, plan.Count(models.ParentChapter))
	assert.Equal(t, 4, plan.Count(models.ParentTopic))
	assert.Equal(t, 4, plan.Count(models.ParentContent))
	assert.Len(t, plan.Attachments, len(tr.pdfs))

	_, err = engine.Resolve(context.Background(), models.ParentRef{Type: "video", ID: "x"})
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))
}

func TestDeleteGalleryFolder(t *testing.T) {
	engine, db, blobs := setupEngine(t)
	ctx := context.Background()

	folder := &models.GalleryFolder{Title: "Trip"}
	require.NoError(t, db.Create(folder).Error)
	other := &models.GalleryFolder{Title: "Other"}
	require.NoError(t, db.Create(other).Error)

	var keys []string
	for i := 0; i < 3; i++ {
		obj, err := blobs.Put(ctx, GalleryPrefix(folder.ID), "img.jpg", strings.NewReader("jpg"))
		require.NoError(t, err)
		require.NoError(t, db.Create(&models.GalleryImage{FolderID: folder.ID, URL: obj.URL, StoredName: obj.Key}).Error)
		keys = append(keys, obj.Key)
	}
	obj, err := blobs.Put(ctx, GalleryPrefix(other.ID), "keep.jpg", strings.NewReader("jpg"))
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.GalleryImage{FolderID: other.ID, StoredName: obj.Key}).Error)

	require.NoError(t, engine.DeleteGalleryFolder(ctx, folder.ID))

	var images int64
	db.Model(&models.GalleryImage{}).Where("folder_id = ?", folder.ID).Count(&images)
	assert.Zero(t, images)
	assert.Equal(t, int64(1), count(t, db, &models.GalleryFolder{}))
	for _, key := range keys {
		assert.False(t, blobs.Has(key))
	}
	assert.True(t, blobs.Has(obj.Key))
	assert.Equal(t, []string{GalleryPrefix(folder.ID)}, blobs.Prefixes)
}

func TestDeleteGalleryImageMovesThumbnail(t *testing.T) {
	engine, db, blobs := setupEngine(t)
	ctx := context.Background()

	folder := &models.GalleryFolder{Title: "Trip"}
	require.NoError(t, db.Create(folder).Error)
	var images []*models.GalleryImage
	for i := 0; i < 3; i++ {
		obj, err := blobs.Put(ctx, GalleryPrefix(folder.ID), fmt.Sprintf("%d.jpg", i), strings.NewReader("jpg"))
		require.NoError(t, err)
		img := &models.GalleryImage{FolderID: folder.ID, URL: obj.URL, StoredName: obj.Key}
		require.NoError(t, db.Create(img).Error)
		images = append(images, img)
	}
	require.NoError(t, db.Model(folder).Update("thumbnail_url", images[0].URL).Error)

	thumbnail := func() string {
		var f models.GalleryFolder
		require.NoError(t, db.First(&f, "id = ?", folder.ID).Error)
		return f.ThumbnailURL
	}

	// not the thumbnail: untouched
	require.NoError(t, engine.DeleteGalleryImage(ctx, images[2].ID))
	assert.Equal(t, images[0].URL, thumbnail())

	require.NoError(t, engine.DeleteGalleryImage(ctx, images[0].ID))
	assert.False(t, blobs.Has(images[0].StoredName))
	assert.Equal(t, images[1].URL, thumbnail())

	require.NoError(t, engine.DeleteGalleryImage(ctx, images[1].ID))
	assert.Empty(t, thumbnail())
	assert.Zero(t, count(t, db, &models.GalleryImage{}))
}

func TestDeletePdfNotifiesParent(t *testing.T) {
	engine, db, blobs := setupEngine(t)
	article := &models.Article{Title: "a"}
	require.NoError(t, db.Create(article).Error)
	pdf := createPdf(t, db, blobs, models.ParentRef{Type: models.ParentArticle, ID: article.ID})

	var got []models.ParentRef
	engine.OnDeleted(func(ctx context.Context, ref models.ParentRef) { got = append(got, ref) })

	require.NoError(t, engine.DeletePdf(context.Background(), pdf.ID))

	assert.False(t, blobs.Has(pdf.StoredName))
	assert.Zero(t, count(t, db, &models.PdfAttachment{}))
	assert.Equal(t, []models.ParentRef{{Type: models.ParentArticle, ID: article.ID}}, got)
}

func TestExists(t *testing.T) {
	engine, db, _ := setupEngine(t)
	topic := &models.Topic{ChapterID: "c", Title: "t"}
	require.NoError(t, db.Create(topic).Error)

	ok, err := engine.Exists(context.Background(), models.ParentRef{Type: models.ParentTopic, ID: topic.ID})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.Exists(context.Background(), models.ParentRef{Type: models.ParentChapter, ID: topic.ID})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEachChunk(t *testing.T) {
	ids := make([]string, 1201)
	for i := range ids {
		ids[i] = fmt.Sprint(i)
	}
	var sizes []int
	require.NoError(t, eachChunk(ids, func(chunk []string) error {
		sizes = append(sizes, len(chunk))
		return nil
	}))
	assert.Equal(t, []int{500, 500, 201}, sizes)
}
