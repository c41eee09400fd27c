package fixcatalog

import (
	"fmt"

	"github.com/go-faker/faker/v4"

	"github.com/catalogd/catalogd/internal/model"
)

// datasetFixture mirrors fixgres_demo's struct-tag convention for
// generating realistic fixture data with go-faker.
type datasetFixture struct {
	Name        string `faker:"word"`
	Path        string `faker:"url"`
	Owner       string `faker:"username"`
	Description string `faker:"sentence"`
}

// RandomEmitRequest builds a syntactically valid model.EmitRequest with
// faker-generated identity fields and a small fixed schema, suffixed with
// n so callers generating a batch get distinct names.
func RandomEmitRequest(n int) (model.EmitRequest, error) {
	var f datasetFixture
	if err := faker.FakeData(&f); err != nil {
		return model.EmitRequest{}, fmt.Errorf("generate dataset fixture: %w", err)
	}

	return model.EmitRequest{
		Name:        fmt.Sprintf("%s_%d", f.Name, n),
		Path:        f.Path,
		Format:      "parquet",
		Owner:       f.Owner,
		Description: f.Description,
		Schema: []model.Field{
			{Name: "id", DataType: "Int64", Nullable: false, Ordinal: 0},
			{Name: "value", DataType: "Utf8", Nullable: true, Ordinal: 1},
		},
	}, nil
}
