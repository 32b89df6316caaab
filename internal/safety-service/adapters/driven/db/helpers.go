package db

// nullUUID maps the domain's empty-string ids onto SQL NULL for nullable
// uuid columns.
func nullUUID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
