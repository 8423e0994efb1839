package po

// MediaAsset 媒体资源持久化对象
type MediaAsset struct {
	BaseModel
	MediaUUID     string  `gorm:"column:media_uuid;type:varchar(36);uniqueIndex" json:"media_uuid"`
	Title         string  `gorm:"column:title;type:varchar(255)" json:"title"`
	Kind          string  `gorm:"column:kind;type:varchar(10);index" json:"kind"` // image, video
	SourcePath    string  `gorm:"column:source_path;type:varchar(512)" json:"source_path"`
	OutputPath    *string `gorm:"column:output_path;type:varchar(512)" json:"output_path"`
	ThumbnailPath *string `gorm:"column:thumbnail_path;type:varchar(512)" json:"thumbnail_path"`
	Status        string  `gorm:"column:status;type:varchar(20);index" json:"status"` // processing, success, failed
	Attempts      int     `gorm:"column:attempts;type:int;default:0" json:"attempts"`
	ErrorMessage  string  `gorm:"column:error_message;type:varchar(1024)" json:"error_message"` // 长度见 entity.MaxErrorMessageLength
}

// TableName 指定表名
func (MediaAsset) TableName() string {
	return "media_assets"
}
