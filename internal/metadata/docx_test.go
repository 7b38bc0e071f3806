package metadata

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureCoreXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"><dc:title>Incident Notes</dc:title><dc:creator>casey</dc:creator><cp:keywords>drive, evidence</cp:keywords><cp:lastModifiedBy>jordan</cp:lastModifiedBy><dcterms:created xsi:type="dcterms:W3CDTF">2024-01-01T09:00:00Z</dcterms:created></cp:coreProperties>`

const fixtureAppXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties"><Application>Microsoft Office Word</Application><Company>Initech</Company><Pages>3</Pages><Words>412</Words></Properties>`

const fixtureDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>nothing to see here</w:t></w:r></w:p></w:body></w:document>`

func buildFixtureDOCX(t *testing.T) string {
	t.Helper()

	entries := []struct {
		name, body string
	}{
		{"[Content_Types].xml", `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		{"docProps/core.xml", fixtureCoreXML},
		{"docProps/app.xml", fixtureAppXML},
		{"word/document.xml", fixtureDocumentXML},
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		fw, err := w.Create(e.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "notes.docx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func readDOCXEntry(t *testing.T, path, name string) []byte {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	for _, f := range r.File {
		if f.Name == name {
			data, err := readZipEntry(f)
			require.NoError(t, err)
			return data
		}
	}
	t.Fatalf("entry %s not found in %s", name, path)
	return nil
}

func TestExtractDOCX(t *testing.T) {
	doc, err := ExtractDOCX(buildFixtureDOCX(t))
	require.NoError(t, err)
	assert.Equal(t, "docx", doc.Format)

	want := map[string]string{
		"Title":          "Incident Notes",
		"Author":         "casey",
		"Keywords":       "drive, evidence",
		"LastModifiedBy": "jordan",
		"Created":        "2024-01-01T09:00:00Z",
		"Application":    "Microsoft Office Word",
		"Company":        "Initech",
		"Pages":          "3",
		"Words":          "412",
	}
	for key, wantValue := range want {
		got, ok := fieldValue(doc, key)
		require.True(t, ok, "field %s missing", key)
		assert.Equal(t, wantValue, got, "field %s", key)
	}

	assert.Len(t, doc.FieldsInCategory("Core Properties"), 5)
	assert.Len(t, doc.FieldsInCategory("App Properties"), 4)
}

func TestExtractDOCXNotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.docx")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip archive"), 0644))

	_, err := ExtractDOCX(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "as zip")
}

func TestClearDOCX(t *testing.T) {
	path := buildFixtureDOCX(t)

	result, err := ClearDOCX(path, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "notes_clean.docx"), result.OutputPath)
	assert.Equal(t, 5, result.RemovedFields)

	// core.xml scrubbed, everything else copied through byte for byte.
	assert.Equal(t, blankCorePropsXML, string(readDOCXEntry(t, result.OutputPath, "docProps/core.xml")))
	assert.Equal(t, fixtureAppXML, string(readDOCXEntry(t, result.OutputPath, "docProps/app.xml")))
	assert.Equal(t, fixtureDocumentXML, string(readDOCXEntry(t, result.OutputPath, "word/document.xml")))

	doc, err := ExtractDOCX(result.OutputPath)
	require.NoError(t, err)
	assert.Empty(t, doc.FieldsInCategory("Core Properties"))
	assert.Len(t, doc.FieldsInCategory("App Properties"), 4)
}

func TestClearDOCXExplicitOutput(t *testing.T) {
	path := buildFixtureDOCX(t)
	out := filepath.Join(t.TempDir(), "scrubbed", "final.docx")

	result, err := ClearDOCX(path, out)
	require.NoError(t, err)
	assert.Equal(t, out, result.OutputPath)

	doc, err := ExtractDOCX(out)
	require.NoError(t, err)
	assert.Empty(t, doc.FieldsInCategory("Core Properties"))
}

func TestStripXMLNamespaces(t *testing.T) {
	in := `<cp:coreProperties xmlns:cp="urn:a" xmlns:dc="urn:b"><dc:title>T</dc:title></cp:coreProperties>`
	want := `<coreProperties><title>T</title></coreProperties>`
	assert.Equal(t, want, string(stripXMLNamespaces([]byte(in))))
}
