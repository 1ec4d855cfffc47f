package models

// AdminActivityLog records an admin action for the dashboard.
type AdminActivityLog struct {
	ID        int64  `json:"id" db:"id"`
	AdminID   string `json:"admin_id" db:"admin_id"`
	Username  string `json:"username" db:"username"`
	Action    string `json:"action" db:"action"`
	Details   string `json:"details" db:"details"`
	CreatedAt string `json:"created_at" db:"created_at"`
}

// Admin activity actions.
const (
	AdminActionLogin         = "login"
	AdminActionCreateProduct = "create_product"
	AdminActionDeleteProduct = "delete_product"
	AdminActionStartUpload   = "start_upload"
	AdminActionDeleteMedia   = "delete_media"
	AdminActionImportPalette = "import_palette"
	AdminActionUpdatePalette = "update_palette"
	AdminActionDeletePalette = "delete_palette"
	AdminActionReplyContact  = "reply_contact"
	AdminActionPruneUploads  = "prune_uploads"
)
