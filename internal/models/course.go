package models

import "strings"

// Course is the root of the course tree shown by the player and the editor.
type Course struct {
	ID           uint     `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Instructor   string   `json:"instructor_name"`
	Category     string   `json:"category_name"`
	CategoryID   *uint    `json:"category_id,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	Modules      []Module `json:"modules"`
}

// Module groups lessons. Lesson order is the array order returned by the backend.
type Module struct {
	ID          uint     `json:"id"`
	CourseID    uint     `json:"course_id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Lessons     []Lesson `json:"lessons"`
}

// Category is a course category offered by the backend.
type Category struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// ContentType identifies how a lesson is rendered.
type ContentType string

const (
	ContentVideo      ContentType = "video"
	ContentText       ContentType = "text"
	ContentQuiz       ContentType = "quiz"
	ContentAssignment ContentType = "assignment"
	ContentOther      ContentType = "other"
)

// NormalizeContentType maps unknown values to ContentOther.
func NormalizeContentType(value string) ContentType {
	switch ContentType(strings.ToLower(strings.TrimSpace(value))) {
	case ContentVideo:
		return ContentVideo
	case ContentText:
		return ContentText
	case ContentQuiz:
		return ContentQuiz
	case ContentAssignment:
		return ContentAssignment
	default:
		return ContentOther
	}
}

// Lesson is a single unit of content inside a module.
type Lesson struct {
	ID          uint         `json:"id"`
	ModuleID    uint         `json:"module_id,omitempty"`
	Title       string       `json:"title"`
	ContentType ContentType  `json:"content_type"`
	ContentURL  string       `json:"content_url,omitempty"`
	ContentText string       `json:"content_text,omitempty"`
	Duration    int          `json:"duration"`
	Assignments []Assignment `json:"assignments"`
	Quizzes     []Quiz       `json:"quizzes"`
}

// Normalize fills nil child lists and clamps invalid values coming from the backend.
func (l Lesson) Normalize() Lesson {
	l.ContentType = NormalizeContentType(string(l.ContentType))
	if l.Duration < 0 {
		l.Duration = 0
	}
	if l.Assignments == nil {
		l.Assignments = []Assignment{}
	}
	if l.Quizzes == nil {
		l.Quizzes = []Quiz{}
	}
	return l
}

// LessonPosition locates a lesson inside the tree.
type LessonPosition struct {
	Module int
	Lesson int
}

// LessonIDs returns every lesson id in document order.
func (c Course) LessonIDs() []uint {
	ids := make([]uint, 0)
	for _, module := range c.Modules {
		for _, lesson := range module.Lessons {
			ids = append(ids, lesson.ID)
		}
	}
	return ids
}

// Lessons returns every lesson in document order.
func (c Course) Lessons() []Lesson {
	lessons := make([]Lesson, 0)
	for _, module := range c.Modules {
		lessons = append(lessons, module.Lessons...)
	}
	return lessons
}

// FindLesson scans every module for the lesson id.
func (c Course) FindLesson(id uint) (Lesson, LessonPosition, bool) {
	for mi, module := range c.Modules {
		for li, lesson := range module.Lessons {
			if lesson.ID == id {
				return lesson, LessonPosition{Module: mi, Lesson: li}, true
			}
		}
	}
	return Lesson{}, LessonPosition{}, false
}

// FindAssignment returns the assignment and the id of the lesson that owns it.
func (c Course) FindAssignment(id uint) (Assignment, uint, bool) {
	for _, module := range c.Modules {
		for _, lesson := range module.Lessons {
			for _, assignment := range lesson.Assignments {
				if assignment.ID == id {
					return assignment, lesson.ID, true
				}
			}
		}
	}
	return Assignment{}, 0, false
}

// HasModule reports whether the module id belongs to the course.
func (c Course) HasModule(id uint) bool {
	for _, module := range c.Modules {
		if module.ID == id {
			return true
		}
	}
	return false
}

// WithModule returns a copy of the course with the module appended.
func (c Course) WithModule(module Module) Course {
	if module.Lessons == nil {
		module.Lessons = []Lesson{}
	}
	modules := make([]Module, len(c.Modules), len(c.Modules)+1)
	copy(modules, c.Modules)
	c.Modules = append(modules, module)
	return c
}

// WithLesson returns a copy of the course with the lesson appended to the module.
// The boolean is false when the module is not part of the course.
func (c Course) WithLesson(moduleID uint, lesson Lesson) (Course, bool) {
	lesson = lesson.Normalize()
	for mi, module := range c.Modules {
		if module.ID != moduleID {
			continue
		}
		lessons := make([]Lesson, len(module.Lessons), len(module.Lessons)+1)
		copy(lessons, module.Lessons)
		module.Lessons = append(lessons, lesson)
		return c.replaceModule(mi, module), true
	}
	return c, false
}

// WithAssignment returns a copy of the course with the assignment appended to the lesson.
// Lists of every other lesson are shared with the receiver.
func (c Course) WithAssignment(lessonID uint, assignment Assignment) (Course, bool) {
	return c.updateLesson(lessonID, func(lesson Lesson) Lesson {
		list := make([]Assignment, len(lesson.Assignments), len(lesson.Assignments)+1)
		copy(list, lesson.Assignments)
		lesson.Assignments = append(list, assignment)
		return lesson
	})
}

// WithQuiz returns a copy of the course with the quiz appended to the lesson.
func (c Course) WithQuiz(lessonID uint, quiz Quiz) (Course, bool) {
	return c.updateLesson(lessonID, func(lesson Lesson) Lesson {
		list := make([]Quiz, len(lesson.Quizzes), len(lesson.Quizzes)+1)
		copy(list, lesson.Quizzes)
		lesson.Quizzes = append(list, quiz)
		return lesson
	})
}

func (c Course) updateLesson(lessonID uint, mutate func(Lesson) Lesson) (Course, bool) {
	_, pos, ok := c.FindLesson(lessonID)
	if !ok {
		return c, false
	}
	module := c.Modules[pos.Module]
	lessons := make([]Lesson, len(module.Lessons))
	copy(lessons, module.Lessons)
	lessons[pos.Lesson] = mutate(lessons[pos.Lesson])
	module.Lessons = lessons
	return c.replaceModule(pos.Module, module), true
}

func (c Course) replaceModule(index int, module Module) Course {
	modules := make([]Module, len(c.Modules))
	copy(modules, c.Modules)
	modules[index] = module
	c.Modules = modules
	return c
}
