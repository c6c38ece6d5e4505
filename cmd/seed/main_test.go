package main

import (
	"path/filepath"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseProductRows(t *testing.T) {
	rows := [][]string{
		{"Mug", "Stoneware", "kitchen", "12.5", "40", "", "/uploads/products/mug.png, /uploads/products/mug-2.png"},
		{"Plate", "", "", "8"},
		{"", "no name", "", "3"},
		{"Bowl", "", "", "cheap"},
		{"Cup", "", "", "4", "-1"},
		{"Jar", "", "", "6", "1", "archived"},
		{"mug", "duplicate", "", "1"},
		{"Lamp", "", "", "30", "2", "INACTIVE"},
	}

	inputs, skipped := parseProductRows(rows)

	assert.Equal(t, 5, skipped)
	require.Len(t, inputs, 3)

	assert.Equal(t, "Mug", inputs[0].Name)
	assert.Equal(t, 12.5, inputs[0].Price)
	assert.Equal(t, 40, inputs[0].Quantity)
	assert.Equal(t, model.ProductStatusActive, inputs[0].Status)
	assert.Equal(t, []string{"/uploads/products/mug.png", "/uploads/products/mug-2.png"}, inputs[0].Images)

	assert.Equal(t, "Plate", inputs[1].Name)
	assert.Equal(t, 0, inputs[1].Quantity)
	assert.Nil(t, inputs[1].Images)

	assert.Equal(t, model.ProductStatusInactive, inputs[2].Status)
}

func TestReadProductsFromXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"name", "description", "category", "price", "quantity", "status", "images"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Mug", "Stoneware", "kitchen", 12.5, 40}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"Plate", "", "", 8}))

	path := filepath.Join(t.TempDir(), "products.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	inputs, err := readProductsFromXLSX(path)

	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, "Mug", inputs[0].Name)
	assert.Equal(t, 40, inputs[0].Quantity)
	assert.Equal(t, 8.0, inputs[1].Price)
}

func TestReadProductsFromXLSX_MissingFile(t *testing.T) {
	_, err := readProductsFromXLSX(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}

func TestHeaderMatches(t *testing.T) {
	assert.True(t, headerMatches([]string{"Name", "Description", "Category", "Price", "Quantity", "Status", "Images"}))
	assert.False(t, headerMatches([]string{"name", "price"}))
}
