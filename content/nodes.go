package content

import (
	"context"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"edumedia/apierr"
	"edumedia/common"
	"edumedia/models"
)

// level describes one tier of the hierarchy for the shared handlers.
type level struct {
	typ       models.ParentType
	path      string
	filter    string // query parameter narrowing lists to one parent
	filterCol string
	newOne    func() models.Node
	newList   func() interface{}
}

func (m *ContentModule) levels() []level {
	return []level{
		{
			typ:     models.ParentArticle,
			path:    "/articles",
			newOne:  func() models.Node { return &models.Article{} },
			newList: func() interface{} { return &[]models.Article{} },
		},
		{
			typ:       models.ParentChapter,
			path:      "/chapters",
			filter:    "articleId",
			filterCol: "article_id",
			newOne:    func() models.Node { return &models.Chapter{} },
			newList:   func() interface{} { return &[]models.Chapter{} },
		},
		{
			typ:       models.ParentTopic,
			path:      "/topics",
			filter:    "chapterId",
			filterCol: "chapter_id",
			newOne:    func() models.Node { return &models.Topic{} },
			newList:   func() interface{} { return &[]models.Topic{} },
		},
		{
			typ:       models.ParentContent,
			path:      "/contents",
			filter:    "topicId",
			filterCol: "topic_id",
			newOne:    func() models.Node { return &models.Content{} },
			newList:   func() interface{} { return &[]models.Content{} },
		},
	}
}

func (m *ContentModule) list(lv level) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := m.db.WithContext(c.Request.Context()).Order("sort_order ASC, created_at ASC")
		if lv.filter != "" {
			if v := c.Query(lv.filter); v != "" {
				q = q.Where(lv.filterCol+" = ?", v)
			}
		}
		out := lv.newList()
		if err := q.Find(out).Error; err != nil {
			common.Fail(c, m.log, apierr.Internal(err))
			return
		}
		common.OK(c, out)
	}
}

func (m *ContentModule) get(lv level) gin.HandlerFunc {
	return func(c *gin.Context) {
		node := lv.newOne()
		if err := m.db.WithContext(c.Request.Context()).First(node, "id = ?", c.Param("id")).Error; err != nil {
			common.Fail(c, m.log, common.NotFoundOr(err, lv.typ.Label()+" not found"))
			return
		}
		common.OK(c, node)
	}
}

func (m *ContentModule) create(lv level) gin.HandlerFunc {
	return func(c *gin.Context) {
		node := lv.newOne()
		if err := c.ShouldBindJSON(node); err != nil {
			common.Fail(c, m.log, apierr.Validation("Invalid request body"))
			return
		}
		*node.Identity() = models.Base{}

		ctx := c.Request.Context()
		if err := m.check(ctx, node); err != nil {
			common.Fail(c, m.log, err)
			return
		}
		if err := m.db.WithContext(ctx).Create(node).Error; err != nil {
			common.Fail(c, m.log, apierr.Internal(err))
			return
		}
		m.invalidate()
		common.Created(c, lv.typ.Label()+" created", node)
	}
}

func (m *ContentModule) update(lv level) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		db := m.db.WithContext(ctx)
		node := lv.newOne()
		if err := db.First(node, "id = ?", c.Param("id")).Error; err != nil {
			common.Fail(c, m.log, common.NotFoundOr(err, lv.typ.Label()+" not found"))
			return
		}
		identity := *node.Identity()

		// fields absent from the body keep their stored values
		if err := c.ShouldBindJSON(node); err != nil {
			common.Fail(c, m.log, apierr.Validation("Invalid request body"))
			return
		}
		*node.Identity() = identity

		if err := m.check(ctx, node); err != nil {
			common.Fail(c, m.log, err)
			return
		}
		if err := db.Save(node).Error; err != nil {
			common.Fail(c, m.log, apierr.Internal(err))
			return
		}
		m.invalidate()
		common.OK(c, node)
	}
}

func (m *ContentModule) remove(lv level) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.engine.DeleteNode(c.Request.Context(), models.ParentRef{Type: lv.typ, ID: c.Param("id")}); err != nil {
			common.Fail(c, m.log, err)
			return
		}
		common.Message(c, lv.typ.Label()+" deleted (cascade)")
	}
}

type orderItem struct {
	ID    string `json:"id"`
	Order *int   `json:"order"`
}

// reorder accepts [{id, order}], {data: [...]} or {items: [...]}.
func (m *ContentModule) reorder(lv level) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			common.Fail(c, m.log, apierr.Validation("Invalid request body"))
			return
		}
		entries := common.ExtractList(raw)
		if len(entries) == 0 {
			common.Fail(c, m.log, apierr.Validation("No items to reorder"))
			return
		}
		items := make([]orderItem, 0, len(entries))
		for _, e := range entries {
			var it orderItem
			if err := json.Unmarshal(e, &it); err != nil || it.ID == "" || it.Order == nil {
				common.Fail(c, m.log, apierr.Validation("Each item needs an id and an order"))
				return
			}
			items = append(items, it)
		}

		var updated int64
		err = m.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			for _, it := range items {
				res := tx.Model(lv.newOne()).Where("id = ?", it.ID).Update("sort_order", *it.Order)
				if res.Error != nil {
					return res.Error
				}
				updated += res.RowsAffected
			}
			return nil
		})
		if err != nil {
			common.Fail(c, m.log, apierr.Internal(err))
			return
		}
		m.invalidate()
		common.OK(c, gin.H{"updated": updated})
	}
}

// check validates required fields and that the parent exists.
func (m *ContentModule) check(ctx context.Context, node models.Node) error {
	if err := m.validate.Struct(node); err != nil {
		return common.ValidationError(err)
	}
	up := node.Up()
	if up.Type == "" {
		return nil
	}
	ok, err := m.engine.Exists(ctx, up)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.NotFound(up.Type.Label() + " not found")
	}
	return nil
}
