package record

import "strings"

// Collection names as persisted by the storage medium.
const (
	CollectionCatalog         = "catalog"
	CollectionUsers           = "users"
	CollectionCRM             = "crm"
	CollectionForms           = "forms"
	CollectionFormSubmissions = "form_submissions"
	CollectionOrders          = "orders"
	CollectionPurchases       = "purchases"
	CollectionCourseProgress  = "course_progress"
	CollectionCourses         = "courses"
)

// Collections lists every known collection in display order.
var Collections = []string{
	CollectionCatalog,
	CollectionUsers,
	CollectionCRM,
	CollectionForms,
	CollectionFormSubmissions,
	CollectionOrders,
	CollectionPurchases,
	CollectionCourseProgress,
	CollectionCourses,
}

// Record is implemented by every entity stored in a collection.
type Record interface {
	// Kind names the entity type. It selects the shape definition used on decode.
	Kind() string

	// Key returns the primary key, unique within the collection.
	Key() string

	// Field returns a string view of the field with the given JSON name.
	// Unknown names fall back to the Extra bag.
	Field(name string) (string, bool)
}

// Catalog item types.
const (
	ItemService     = "service"
	ItemCourse      = "course"
	ItemEbook       = "ebook"
	ItemMasterclass = "masterclass"
	ItemConsulta    = "consulta"
)

// Status values shared by catalog items.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Order statuses.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// User provenance tags.
const (
	SourceRegistration = "Registro"
	SourceContactForm  = "Formulario de Contacto"
)

// CRM statuses.
const CRMStatusNew = "new"

// CatalogItem is a product or service offered by the storefront.
type CatalogItem struct {
	ID          string   `json:"id"`
	Type        string   `json:"type,omitempty"`
	Category    string   `json:"category,omitempty"`
	Name        string   `json:"name,omitempty"`
	Status      string   `json:"status,omitempty"`
	Price       float64  `json:"price,omitempty"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Duration    string   `json:"duration,omitempty"`
	Features    []string `json:"features,omitempty"`

	Extra Extras `json:"-"`
}

func (CatalogItem) Kind() string { return "CatalogItem" }
func (c CatalogItem) Key() string { return c.ID }

func (c CatalogItem) Field(name string) (string, bool) {
	switch name {
	case "id":
		return c.ID, true
	case "type":
		return c.Type, true
	case "category":
		return c.Category, true
	case "name":
		return c.Name, true
	case "status":
		return c.Status, true
	case "price":
		return formatNumber(c.Price), true
	case "description":
		return c.Description, true
	case "imageUrl":
		return c.ImageURL, true
	case "duration":
		return c.Duration, true
	case "features":
		return strings.Join(c.Features, " "), true
	}
	return c.Extra.Field(name)
}

// User is a registered person or a lead captured from a form.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Source       string    `json:"source,omitempty"`
	RegisteredAt Timestamp `json:"registeredAt,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`

	Extra Extras `json:"-"`
}

func (User) Kind() string { return "User" }
func (u User) Key() string { return u.ID }

func (u User) Field(name string) (string, bool) {
	switch name {
	case "id":
		return u.ID, true
	case "name":
		return u.Name, true
	case "email":
		return u.Email, true
	case "source":
		return u.Source, true
	case "registeredAt":
		return string(u.RegisteredAt), true
	case "avatar":
		return u.Avatar, true
	}
	return u.Extra.Field(name)
}

// CrmData holds sales-pipeline data for a User. UserID is both its primary
// key and a foreign key into the users collection.
type CrmData struct {
	UserID string   `json:"userId"`
	Value  float64  `json:"value"`
	Status string   `json:"status,omitempty"`
	Tags   []string `json:"tags,omitempty"`
	Notes  string   `json:"notes,omitempty"`

	Extra Extras `json:"-"`
}

func (CrmData) Kind() string { return "CrmData" }
func (c CrmData) Key() string { return c.UserID }

func (c CrmData) Field(name string) (string, bool) {
	switch name {
	case "userId":
		return c.UserID, true
	case "value":
		return formatNumber(c.Value), true
	case "status":
		return c.Status, true
	case "tags":
		return strings.Join(c.Tags, " "), true
	case "notes":
		return c.Notes, true
	}
	return c.Extra.Field(name)
}

// Form field types. Only email fields get special handling on import.
const (
	FieldTypeText     = "text"
	FieldTypeEmail    = "email"
	FieldTypeTel      = "tel"
	FieldTypeTextarea = "textarea"
)

// FormField is one input of a Form.
type FormField struct {
	ID          string `json:"id"`
	Label       string `json:"label,omitempty"`
	Type        string `json:"type,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`

	Extra Extras `json:"-"`
}

// Form is an authored form definition.
type Form struct {
	ID          string      `json:"id"`
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	Fields      []FormField `json:"fields,omitempty"`
	CreatedAt   Timestamp   `json:"createdAt,omitempty"`

	Extra Extras `json:"-"`
}

func (Form) Kind() string { return "Form" }
func (f Form) Key() string { return f.ID }

func (f Form) Field(name string) (string, bool) {
	switch name {
	case "id":
		return f.ID, true
	case "name":
		return f.Name, true
	case "description":
		return f.Description, true
	case "createdAt":
		return string(f.CreatedAt), true
	}
	return f.Extra.Field(name)
}

// FieldsOfType returns the fields with the given type, in form order.
func (f Form) FieldsOfType(typ string) []FormField {
	var out []FormField
	for _, field := range f.Fields {
		if field.Type == typ {
			out = append(out, field)
		}
	}
	return out
}

// FormSubmission is one filled-in Form. Data maps FormField.ID to the
// submitted value.
type FormSubmission struct {
	ID          string         `json:"id"`
	FormID      string         `json:"formId"`
	Data        SubmissionData `json:"data,omitempty"`
	SubmittedAt Timestamp      `json:"submittedAt,omitempty"`

	Extra Extras `json:"-"`
}

func (FormSubmission) Kind() string { return "FormSubmission" }
func (s FormSubmission) Key() string { return s.ID }

func (s FormSubmission) Field(name string) (string, bool) {
	switch name {
	case "id":
		return s.ID, true
	case "formId":
		return s.FormID, true
	case "submittedAt":
		return string(s.SubmittedAt), true
	}
	if v, ok := s.Data[name]; ok {
		return v, true
	}
	return s.Extra.Field(name)
}

// Order is a storefront order. Line items are not modeled; they travel in
// the Extra bag.
type Order struct {
	ID           string    `json:"id"`
	CustomerName string    `json:"customerName,omitempty"`
	OrderDate    Timestamp `json:"orderDate,omitempty"`
	Total        float64   `json:"total"`
	Status       string    `json:"status,omitempty"`

	Extra Extras `json:"-"`
}

func (Order) Kind() string { return "Order" }
func (o Order) Key() string { return o.ID }

func (o Order) Field(name string) (string, bool) {
	switch name {
	case "id":
		return o.ID, true
	case "customerName":
		return o.CustomerName, true
	case "orderDate":
		return string(o.OrderDate), true
	case "total":
		return formatNumber(o.Total), true
	case "status":
		return o.Status, true
	}
	return o.Extra.Field(name)
}

// Purchase is one bought catalog item in a user's history.
type Purchase struct {
	ID           string    `json:"id"`
	ItemID       string    `json:"itemId"`
	ItemType     string    `json:"itemType,omitempty"`
	ItemName     string    `json:"itemName,omitempty"`
	PurchaseDate Timestamp `json:"purchaseDate,omitempty"`
	Amount       float64   `json:"amount"`
	UserID       string    `json:"userId,omitempty"`

	Extra Extras `json:"-"`
}

func (Purchase) Kind() string { return "Purchase" }
func (p Purchase) Key() string { return p.ID }

func (p Purchase) Field(name string) (string, bool) {
	switch name {
	case "id":
		return p.ID, true
	case "itemId":
		return p.ItemID, true
	case "itemType":
		return p.ItemType, true
	case "itemName":
		return p.ItemName, true
	case "purchaseDate":
		return string(p.PurchaseDate), true
	case "amount":
		return formatNumber(p.Amount), true
	case "userId":
		return p.UserID, true
	}
	return p.Extra.Field(name)
}

// CourseProgress records which lessons of a course have been completed.
// CompletedLessons is a set persisted as an array.
type CourseProgress struct {
	CourseID         string   `json:"courseId"`
	CompletedLessons []string `json:"completedLessons"`
	UserID           string   `json:"userId,omitempty"`

	Extra Extras `json:"-"`
}

func (CourseProgress) Kind() string { return "CourseProgress" }

// Key is the course id, scoped by user when one is recorded.
func (p CourseProgress) Key() string {
	return ProgressKey(p.UserID, p.CourseID)
}

// ProgressKey builds the primary key of a CourseProgress record.
func ProgressKey(userID, courseID string) string {
	if userID == "" {
		return courseID
	}
	return userID + "/" + courseID
}

func (p CourseProgress) Field(name string) (string, bool) {
	switch name {
	case "courseId":
		return p.CourseID, true
	case "userId":
		return p.UserID, true
	case "completedLessons":
		return strings.Join(p.CompletedLessons, " "), true
	}
	return p.Extra.Field(name)
}

// Completed reports the number of distinct completed lessons.
func (p CourseProgress) Completed() int {
	seen := make(map[string]struct{}, len(p.CompletedLessons))
	for _, id := range p.CompletedLessons {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// HasLesson reports whether lessonID is marked complete.
func (p CourseProgress) HasLesson(lessonID string) bool {
	for _, id := range p.CompletedLessons {
		if id == lessonID {
			return true
		}
	}
	return false
}

// WithLesson returns a copy of p with lessonID marked complete.
// Adding a lesson that is already present returns p unchanged.
func (p CourseProgress) WithLesson(lessonID string) CourseProgress {
	if p.HasLesson(lessonID) {
		return p
	}
	lessons := make([]string, len(p.CompletedLessons), len(p.CompletedLessons)+1)
	copy(lessons, p.CompletedLessons)
	p.CompletedLessons = append(lessons, lessonID)
	return p
}

// Lesson is a unit of course content.
type Lesson struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Type    string `json:"type,omitempty"`
	Content string `json:"content,omitempty"`

	Extra Extras `json:"-"`
}

// Module groups lessons within a course.
type Module struct {
	ID      string   `json:"id"`
	Title   string   `json:"title,omitempty"`
	Lessons []Lesson `json:"lessons,omitempty"`

	Extra Extras `json:"-"`
}

// Course is the authoring variant of a course catalog item.
type Course struct {
	ID          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Modules     []Module `json:"modules,omitempty"`

	Extra Extras `json:"-"`
}

func (Course) Kind() string { return "Course" }
func (c Course) Key() string { return c.ID }

func (c Course) Field(name string) (string, bool) {
	switch name {
	case "id":
		return c.ID, true
	case "title":
		return c.Title, true
	case "description":
		return c.Description, true
	case "imageUrl":
		return c.ImageURL, true
	}
	return c.Extra.Field(name)
}

// TotalLessons counts lessons across all modules.
func (c Course) TotalLessons() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}
