package models

// ParentType tags which level of the content hierarchy a ParentRef points at.
type ParentType string

const (
	ParentArticle ParentType = "article"
	ParentChapter ParentType = "chapter"
	ParentTopic   ParentType = "topic"
	ParentContent ParentType = "content"
)

func (t ParentType) Valid() bool {
	switch t {
	case ParentArticle, ParentChapter, ParentTopic, ParentContent:
		return true
	}
	return false
}

// Child returns the level directly below t, or "" for content.
func (t ParentType) Child() ParentType {
	switch t {
	case ParentArticle:
		return ParentChapter
	case ParentChapter:
		return ParentTopic
	case ParentTopic:
		return ParentContent
	}
	return ""
}

// Label is the human name used in response messages.
func (t ParentType) Label() string {
	switch t {
	case ParentArticle:
		return "Article"
	case ParentChapter:
		return "Chapter"
	case ParentTopic:
		return "Topic"
	case ParentContent:
		return "Content"
	}
	return string(t)
}

// ParentRef is a polymorphic reference into the article hierarchy.
type ParentRef struct {
	Type ParentType `json:"parentType"`
	ID   string     `json:"parentId"`
}

// Node is one entity of the article hierarchy.
type Node interface {
	Identity() *Base
	Ref() ParentRef
	// Up points at the parent node; zero for articles.
	Up() ParentRef
}

func (b *Base) Identity() *Base { return b }

func (a *Article) Ref() ParentRef { return ParentRef{Type: ParentArticle, ID: a.ID} }
func (c *Chapter) Ref() ParentRef { return ParentRef{Type: ParentChapter, ID: c.ID} }
func (t *Topic) Ref() ParentRef   { return ParentRef{Type: ParentTopic, ID: t.ID} }
func (c *Content) Ref() ParentRef { return ParentRef{Type: ParentContent, ID: c.ID} }

func (a *Article) Up() ParentRef { return ParentRef{} }
func (c *Chapter) Up() ParentRef { return ParentRef{Type: ParentArticle, ID: c.ArticleID} }
func (t *Topic) Up() ParentRef   { return ParentRef{Type: ParentChapter, ID: t.ChapterID} }
func (c *Content) Up() ParentRef { return ParentRef{Type: ParentTopic, ID: c.TopicID} }
