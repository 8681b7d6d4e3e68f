// images.go image row operations; binary data lives in the object store
package datastore

// SaveImage inserts or updates an image row after checking the polymorphic
// parent invariant.
func (ds *DataStore) SaveImage(img *Image) error {
	if err := ds.checkConn(); err != nil {
		return err
	}
	if _, err := img.Parent(); err != nil {
		return err
	}
	if img.ObjectKey == "" {
		return validationError("image requires an object key", "object_key", img.ObjectKey)
	}
	if err := ds.DB.Save(img).Error; err != nil {
		return dbError(err, "save_image", "", "account_id", img.AccountID)
	}
	return nil
}

// GetImage retrieves one image row owned by the account.
func (ds *DataStore) GetImage(accountID, id uint) (*Image, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var img Image
	if err := ds.firstOwned(&img, "image", accountID, "id = ?", id); err != nil {
		return nil, err
	}
	return &img, nil
}

// ImagesForParent lists the images attached to one parent entity in
// insertion order.
func (ds *DataStore) ImagesForParent(accountID uint, parent ImageParent) ([]Image, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}

	var column string
	switch parent.Kind {
	case ParentRifleProfile:
		column = "rifle_profile_id"
	case ParentSession:
		column = "session_id"
	case ParentGroupEntry:
		column = "group_entry_id"
	default:
		return nil, validationError("unknown image parent kind", "kind", string(parent.Kind))
	}

	var images []Image
	err := ds.DB.Where("account_id = ?", accountID).
		Where(column+" = ?", parent.ID).
		Order("created_at, id").
		Find(&images).Error
	if err != nil {
		return nil, dbError(err, "list_images_for_parent", "", "parent_kind", string(parent.Kind))
	}
	return images, nil
}

// AccountImages lists every image row owned by the account in insertion
// order.
func (ds *DataStore) AccountImages(accountID uint) ([]Image, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var images []Image
	err := ds.DB.Where("account_id = ?", accountID).
		Order("created_at, id").
		Find(&images).Error
	if err != nil {
		return nil, dbError(err, "list_account_images", "", "account_id", accountID)
	}
	return images, nil
}

// DeleteImage removes an image row owned by the account. Deleting the
// stored objects is the caller's responsibility.
func (ds *DataStore) DeleteImage(accountID, id uint) error {
	if err := ds.checkConn(); err != nil {
		return err
	}
	result := ds.DB.Where("account_id = ?", accountID).Delete(&Image{}, id)
	if result.Error != nil {
		return dbError(result.Error, "delete_image", "", "image_id", id)
	}
	if result.RowsAffected == 0 {
		return notFoundError("image", id)
	}
	return nil
}

// BlobKeys returns the non-empty object store keys referenced by an image
// row.
func (img *Image) BlobKeys() []string {
	keys := make([]string, 0, 2)
	if img.ObjectKey != "" {
		keys = append(keys, img.ObjectKey)
	}
	if img.ThumbKey != "" {
		keys = append(keys, img.ThumbKey)
	}
	return keys
}
