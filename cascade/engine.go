// Package cascade removes entities of the article hierarchy and the gallery
// together with everything that hangs off them.
//
// Deletion is resolved top-down (collect every descendant id first) and
// executed bottom-up: attachment blobs, then attachment records, contents,
// topics, chapters and finally the root. Blob removal is best-effort and runs
// before any record is touched; the record deletes run in one transaction.
// Nothing is rolled back on the blob side, and a child created between
// Resolve and the record deletes escapes the cascade.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"edumedia/apierr"
	"edumedia/common"
	"edumedia/logger"
	"edumedia/models"
	"edumedia/storage"
)

// inChunk bounds the size of "id IN ?" lists.
const inChunk = 500

type level struct {
	newModel func() interface{}
	// fk is the column pointing at the parent level; empty for articles.
	fk string
}

var levels = map[models.ParentType]level{
	models.ParentArticle: {newModel: func() interface{} { return &models.Article{} }},
	models.ParentChapter: {newModel: func() interface{} { return &models.Chapter{} }, fk: "article_id"},
	models.ParentTopic:   {newModel: func() interface{} { return &models.Topic{} }, fk: "chapter_id"},
	models.ParentContent: {newModel: func() interface{} { return &models.Content{} }, fk: "topic_id"},
}

// bottomUp is the record delete order below a root.
var bottomUp = []models.ParentType{models.ParentContent, models.ParentTopic, models.ParentChapter}

type Engine struct {
	db        *gorm.DB
	blobs     storage.BlobStore
	log       *logger.Logger
	onDeleted []func(ctx context.Context, ref models.ParentRef)
}

func New(db *gorm.DB, blobs storage.BlobStore, log *logger.Logger) *Engine {
	return &Engine{db: db, blobs: blobs, log: log.With("service", "CascadeEngine")}
}

// OnDeleted registers fn to run after a hierarchy node or attachment is removed.
func (e *Engine) OnDeleted(fn func(ctx context.Context, ref models.ParentRef)) {
	e.onDeleted = append(e.onDeleted, fn)
}

// Plan is the resolved descendant set of a root.
type Plan struct {
	Root        models.ParentRef
	Descendants map[models.ParentType][]string
	Attachments []models.PdfAttachment
}

func (p *Plan) Count(t models.ParentType) int {
	return len(p.Descendants[t])
}

// Resolve walks the foreign-key chain breadth-first from root and collects
// every descendant id plus the attachments on root or any descendant.
func (e *Engine) Resolve(ctx context.Context, root models.ParentRef) (*Plan, error) {
	if !root.Type.Valid() {
		return nil, apierr.Validation("Invalid parent type")
	}
	db := e.db.WithContext(ctx)
	plan := &Plan{Root: root, Descendants: map[models.ParentType][]string{}}

	frontier := []string{root.ID}
	for t := root.Type.Child(); t != "" && len(frontier) > 0; t = t.Child() {
		lv := levels[t]
		var ids []string
		err := eachChunk(frontier, func(chunk []string) error {
			var part []string
			if err := db.Model(lv.newModel()).Where(lv.fk+" IN ?", chunk).Pluck("id", &part).Error; err != nil {
				return err
			}
			ids = append(ids, part...)
			return nil
		})
		if err != nil {
			return nil, apierr.Internal(fmt.Errorf("resolve %ss of %s %s: %w", t, root.Type, root.ID, err))
		}
		plan.Descendants[t] = ids
		frontier = ids
	}

	atts, err := e.attachmentsUnder(db, plan)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("resolve attachments of %s %s: %w", root.Type, root.ID, err))
	}
	plan.Attachments = atts
	return plan, nil
}

func (e *Engine) attachmentsUnder(db *gorm.DB, plan *Plan) ([]models.PdfAttachment, error) {
	var out []models.PdfAttachment
	if err := db.Where("parent_type = ? AND parent_id = ?", plan.Root.Type, plan.Root.ID).Find(&out).Error; err != nil {
		return nil, err
	}
	for t, ids := range plan.Descendants {
		err := eachChunk(ids, func(chunk []string) error {
			var part []models.PdfAttachment
			if err := db.Where("parent_type = ? AND parent_id IN ?", t, chunk).Find(&part).Error; err != nil {
				return err
			}
			out = append(out, part...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Exists reports whether ref names a stored hierarchy node.
func (e *Engine) Exists(ctx context.Context, ref models.ParentRef) (bool, error) {
	lv, ok := levels[ref.Type]
	if !ok {
		return false, apierr.Validation("Invalid parent type")
	}
	var count int64
	if err := e.db.WithContext(ctx).Model(lv.newModel()).Where("id = ?", ref.ID).Count(&count).Error; err != nil {
		return false, apierr.Internal(err)
	}
	return count > 0, nil
}

// DeleteNode removes ref and everything below it. A missing root is not an
// error; an unknown type is a validation error.
func (e *Engine) DeleteNode(ctx context.Context, ref models.ParentRef) error {
	return e.deleteTree(ctx, ref)
}

func (e *Engine) deleteTree(ctx context.Context, root models.ParentRef) error {
	plan, err := e.Resolve(ctx, root)
	if err != nil {
		return err
	}

	for _, att := range plan.Attachments {
		storage.DeleteQuietly(ctx, e.blobs, att.StoredName, e.log)
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attIDs := make([]string, 0, len(plan.Attachments))
		for _, att := range plan.Attachments {
			attIDs = append(attIDs, att.ID)
		}
		if err := deleteIDs(tx, &models.PdfAttachment{}, attIDs); err != nil {
			return fmt.Errorf("delete attachments: %w", err)
		}
		for _, t := range bottomUp {
			if err := deleteIDs(tx, levels[t].newModel(), plan.Descendants[t]); err != nil {
				return fmt.Errorf("delete %ss: %w", t, err)
			}
		}
		if err := tx.Where("id = ?", root.ID).Delete(levels[root.Type].newModel()).Error; err != nil {
			return fmt.Errorf("delete %s: %w", root.Type, err)
		}
		return nil
	})
	if err != nil {
		return apierr.Internal(err)
	}

	e.log.Info("cascade delete complete",
		"type", root.Type,
		"id", root.ID,
		"chapters", plan.Count(models.ParentChapter),
		"topics", plan.Count(models.ParentTopic),
		"contents", plan.Count(models.ParentContent),
		"attachments", len(plan.Attachments),
	)
	e.notify(ctx, root)
	return nil
}

// DeletePdf removes a single attachment. Missing attachments are NotFound.
func (e *Engine) DeletePdf(ctx context.Context, id string) error {
	db := e.db.WithContext(ctx)
	var att models.PdfAttachment
	if err := db.First(&att, "id = ?", id).Error; err != nil {
		return common.NotFoundOr(err, "PDF not found")
	}
	storage.DeleteQuietly(ctx, e.blobs, att.StoredName, e.log)
	if err := db.Delete(&models.PdfAttachment{}, "id = ?", id).Error; err != nil {
		return apierr.Internal(err)
	}
	e.notify(ctx, att.Parent())
	return nil
}

// GalleryPrefix is the blob namespace holding every image of a folder.
func GalleryPrefix(folderID string) string {
	return storage.JoinKey("gallery", folderID)
}

// DeleteGalleryFolder removes a folder, its images and its whole blob namespace.
func (e *Engine) DeleteGalleryFolder(ctx context.Context, id string) error {
	db := e.db.WithContext(ctx)
	var folder models.GalleryFolder
	if err := db.First(&folder, "id = ?", id).Error; err != nil {
		return common.NotFoundOr(err, "Gallery folder not found")
	}
	var images []models.GalleryImage
	if err := db.Where("folder_id = ?", id).Find(&images).Error; err != nil {
		return apierr.Internal(fmt.Errorf("resolve images of folder %s: %w", id, err))
	}

	prefix := GalleryPrefix(id)
	if err := e.blobs.DeletePrefix(ctx, prefix); err != nil {
		e.log.Warn("gallery prefix delete failed", "prefix", prefix, "error", err)
	}
	for _, img := range images {
		if !strings.HasPrefix(img.StoredName, prefix+"/") {
			storage.DeleteQuietly(ctx, e.blobs, img.StoredName, e.log)
		}
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("folder_id = ?", id).Delete(&models.GalleryImage{}).Error; err != nil {
			return fmt.Errorf("delete images: %w", err)
		}
		return tx.Delete(&models.GalleryFolder{}, "id = ?", id).Error
	})
	if err != nil {
		return apierr.Internal(err)
	}
	e.log.Info("gallery folder deleted", "id", id, "images", len(images))
	return nil
}

// DeleteGalleryImage removes one image blob and its record. A folder whose
// thumbnail was that image moves on to its oldest remaining image, or none.
func (e *Engine) DeleteGalleryImage(ctx context.Context, id string) error {
	db := e.db.WithContext(ctx)
	var img models.GalleryImage
	if err := db.First(&img, "id = ?", id).Error; err != nil {
		return common.NotFoundOr(err, "Image not found")
	}
	storage.DeleteQuietly(ctx, e.blobs, img.StoredName, e.log)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.GalleryImage{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete image: %w", err)
		}
		var next models.GalleryImage
		thumbnail := ""
		err := tx.Where("folder_id = ?", img.FolderID).Order("created_at ASC, id ASC").First(&next).Error
		switch {
		case err == nil:
			thumbnail = next.URL
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("find next thumbnail: %w", err)
		}
		return tx.Model(&models.GalleryFolder{}).
			Where("id = ? AND thumbnail_url = ?", img.FolderID, img.URL).
			Update("thumbnail_url", thumbnail).Error
	})
	if err != nil {
		return apierr.Internal(err)
	}
	return nil
}

func (e *Engine) notify(ctx context.Context, ref models.ParentRef) {
	for _, fn := range e.onDeleted {
		fn(ctx, ref)
	}
}

func deleteIDs(tx *gorm.DB, model interface{}, ids []string) error {
	return eachChunk(ids, func(chunk []string) error {
		return tx.Where("id IN ?", chunk).Delete(model).Error
	})
}

func eachChunk(ids []string, fn func(chunk []string) error) error {
	for start := 0; start < len(ids); start += inChunk {
		end := start + inChunk
		if end > len(ids) {
			end = len(ids)
		}
		if err := fn(ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}
