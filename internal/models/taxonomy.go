package models

// Canonical taxonomy dictionary tables. These are reference data,
// synced from the curation side; resolution only reads them.

type Maker struct {
	MakerCode string  `gorm:"primaryKey;type:varchar(50)"`
	MakerName string  `gorm:"type:varchar(100);not null"`
	Origin    *string `gorm:"type:varchar(20)"`
}

func (Maker) TableName() string { return "makers" }

type ModelGroup struct {
	MakerCode      string `gorm:"primaryKey;type:varchar(50)"`
	ModelGroupCode string `gorm:"primaryKey;type:varchar(50)"`
	ModelGroupName string `gorm:"type:varchar(100);not null"`
}

func (ModelGroup) TableName() string { return "model_groups" }

type Model struct {
	MakerCode      string `gorm:"primaryKey;type:varchar(50)"`
	ModelGroupCode string `gorm:"primaryKey;type:varchar(50)"`
	ModelCode      string `gorm:"primaryKey;type:varchar(50)"`
	ModelName      string `gorm:"type:varchar(100);not null"`
}

func (Model) TableName() string { return "models" }

type Trim struct {
	MakerCode      string `gorm:"primaryKey;type:varchar(50)"`
	ModelGroupCode string `gorm:"primaryKey;type:varchar(50)"`
	ModelCode      string `gorm:"primaryKey;type:varchar(50)"`
	TrimCode       string `gorm:"primaryKey;type:varchar(50)"`
	TrimName       string `gorm:"type:varchar(100);not null"`
}

func (Trim) TableName() string { return "trims" }

type Grade struct {
	MakerCode      string `gorm:"primaryKey;type:varchar(50)"`
	ModelGroupCode string `gorm:"primaryKey;type:varchar(50)"`
	ModelCode      string `gorm:"primaryKey;type:varchar(50)"`
	TrimCode       string `gorm:"primaryKey;type:varchar(50)"`
	GradeCode      string `gorm:"primaryKey;type:varchar(50)"`
	GradeName      string `gorm:"type:varchar(100);not null"`
}

func (Grade) TableName() string { return "grades" }
