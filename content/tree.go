package content

import (
	"github.com/gin-gonic/gin"

	"edumedia/apierr"
	"edumedia/common"
	"edumedia/models"
)

type treeContent struct {
	models.Content
	BodyHTML string                 `json:"bodyHtml"`
	Pdfs     []models.PdfAttachment `json:"pdfs"`
}

type treeTopic struct {
	models.Topic
	Contents []treeContent          `json:"contents"`
	Pdfs     []models.PdfAttachment `json:"pdfs"`
}

type treeChapter struct {
	models.Chapter
	Topics []treeTopic             `json:"topics"`
	Pdfs   []models.PdfAttachment `json:"pdfs"`
}

type articleTree struct {
	models.Article
	Chapters []treeChapter          `json:"chapters"`
	Pdfs     []models.PdfAttachment `json:"pdfs"`
}

// tree returns an article with every descendant nested in order and content
// bodies rendered to HTML.
func (m *ContentModule) tree(c *gin.Context) {
	ctx := c.Request.Context()
	db := m.db.WithContext(ctx)

	var article models.Article
	if err := db.First(&article, "id = ?", c.Param("id")).Error; err != nil {
		common.Fail(c, m.log, common.NotFoundOr(err, "Article not found"))
		return
	}

	plan, err := m.engine.Resolve(ctx, article.Ref())
	if err != nil {
		common.Fail(c, m.log, err)
		return
	}
	pdfs := map[models.ParentRef][]models.PdfAttachment{}
	for _, att := range plan.Attachments {
		pdfs[att.Parent()] = append(pdfs[att.Parent()], att)
	}
	attached := func(ref models.ParentRef) []models.PdfAttachment {
		if list, ok := pdfs[ref]; ok {
			return list
		}
		return []models.PdfAttachment{}
	}

	const ordered = "sort_order ASC, created_at ASC"
	var chapters []models.Chapter
	var topics []models.Topic
	var contents []models.Content
	if err := db.Where("article_id = ?", article.ID).Order(ordered).Find(&chapters).Error; err != nil {
		common.Fail(c, m.log, apierr.Internal(err))
		return
	}
	if ids := plan.Descendants[models.ParentChapter]; len(ids) > 0 {
		if err := db.Where("chapter_id IN ?", ids).Order(ordered).Find(&topics).Error; err != nil {
			common.Fail(c, m.log, apierr.Internal(err))
			return
		}
	}
	if ids := plan.Descendants[models.ParentTopic]; len(ids) > 0 {
		if err := db.Where("topic_id IN ?", ids).Order(ordered).Find(&contents).Error; err != nil {
			common.Fail(c, m.log, apierr.Internal(err))
			return
		}
	}

	contentsByTopic := map[string][]treeContent{}
	for _, ct := range contents {
		contentsByTopic[ct.TopicID] = append(contentsByTopic[ct.TopicID], treeContent{
			Content:  ct,
			BodyHTML: renderMarkdown(ct.Body),
			Pdfs:     attached(ct.Ref()),
		})
	}
	topicsByChapter := map[string][]treeTopic{}
	for _, tp := range topics {
		nested := contentsByTopic[tp.ID]
		if nested == nil {
			nested = []treeContent{}
		}
		topicsByChapter[tp.ChapterID] = append(topicsByChapter[tp.ChapterID], treeTopic{
			Topic:    tp,
			Contents: nested,
			Pdfs:     attached(tp.Ref()),
		})
	}

	out := articleTree{Article: article, Chapters: []treeChapter{}, Pdfs: attached(article.Ref())}
	for _, ch := range chapters {
		nested := topicsByChapter[ch.ID]
		if nested == nil {
			nested = []treeTopic{}
		}
		out.Chapters = append(out.Chapters, treeChapter{
			Chapter: ch,
			Topics:  nested,
			Pdfs:    attached(ch.Ref()),
		})
	}
	common.OK(c, out)
}
