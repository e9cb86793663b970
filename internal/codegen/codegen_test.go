package codegen

import (
	"go/parser"
	"go/token"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moamenhredeen/oasgate/api"
	"github.com/moamenhredeen/oasgate/internal/contract"
)

func TestConstName(t *testing.T) {
	tests := map[string]string{
		"listPets":                    "OpListPets",
		"get_owners_ownerId_pet_tags": "OpGetOwnersOwnerIdPetTags",
		"pets.v2-list":                "OpPetsV2List",
	}
	for id, want := range tests {
		assert.Equal(t, want, ConstName(id), id)
	}
}

func TestOperations(t *testing.T) {
	c, err := contract.LoadFile("../../testdata/petstore.yaml")
	require.NoError(t, err)

	src, err := Operations(c, Options{Package: "petstore"})
	require.NoError(t, err)

	f, err := parser.ParseFile(token.NewFileSet(), "operations.go", src, parser.ParseComments)
	require.NoError(t, err)
	assert.Equal(t, "petstore", f.Name.Name)

	text := string(src)
	assert.Contains(t, text, "// Code generated by oasgate gen. DO NOT EDIT.")
	assert.Contains(t, text, "// OpListPets is GET /pets\n// List all pets\nconst OpListPets registry.OperationID = \"listPets\"\n")
	assert.Contains(t, text, `const OpSlowReport registry.OperationID = "slowReport"`)
	assert.Contains(t, text, "\tOpGetOwnPet,\n")
}

func TestOperationsInvalidPackage(t *testing.T) {
	c, err := contract.LoadFile("../../testdata/petstore.yaml")
	require.NoError(t, err)

	_, err = Operations(c, Options{Package: "not-a-package"})
	assert.Error(t, err)
}

// The checked in sample operations must be what gen produces
func TestSampleOperationsAreUpToDate(t *testing.T) {
	c, err := contract.Load(api.SampleContract)
	require.NoError(t, err)

	src, err := Operations(c, Options{Package: "sample"})
	require.NoError(t, err)

	existing, err := os.ReadFile("../sample/operations.go")
	require.NoError(t, err)
	assert.Equal(t, string(existing), string(src))
}
