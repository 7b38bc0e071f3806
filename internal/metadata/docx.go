package metadata

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"

	"github.com/calder/vestige/internal/filelock"
	"github.com/calder/vestige/internal/fileutil"
)

// opcCoreProps mirrors docProps/core.xml after namespace stripping.
type opcCoreProps struct {
	XMLName        xml.Name `xml:"coreProperties"`
	Title          string   `xml:"title"`
	Subject        string   `xml:"subject"`
	Creator        string   `xml:"creator"`
	Keywords       string   `xml:"keywords"`
	Description    string   `xml:"description"`
	LastModifiedBy string   `xml:"lastModifiedBy"`
	Revision       string   `xml:"revision"`
	Created        string   `xml:"created"`
	Modified       string   `xml:"modified"`
	Category       string   `xml:"category"`
}

// opcAppProps mirrors docProps/app.xml.
type opcAppProps struct {
	XMLName     xml.Name `xml:"Properties"`
	Application string   `xml:"Application"`
	Company     string   `xml:"Company"`
	Pages       string   `xml:"Pages"`
	Words       string   `xml:"Words"`
}

// ExtractDOCX reads the docProps parts of the OPC zip at path.
func ExtractDOCX(path string) (*Document, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s as zip: %w", path, err)
	}
	defer r.Close()

	doc := &Document{Path: path, Format: "docx"}
	for _, f := range r.File {
		switch f.Name {
		case "docProps/core.xml":
			data, err := readZipEntry(f)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", f.Name, err)
			}
			doc.Fields = append(doc.Fields, corePropsFields(data)...)
		case "docProps/app.xml":
			data, err := readZipEntry(f)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", f.Name, err)
			}
			doc.Fields = append(doc.Fields, appPropsFields(data)...)
		}
	}
	return doc, nil
}

// blankCorePropsXML replaces docProps/core.xml in cleaned documents. The
// part stays present, just empty, so consumers that require it still parse.
const blankCorePropsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"></cp:coreProperties>`

// ClearDOCX rewrites the zip at path with docProps/core.xml scrubbed and
// every other entry copied through unchanged. An empty outputPath derives
// a sibling file with DefaultCleanSuffix.
func ClearDOCX(path, outputPath string) (*ClearResult, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s as zip: %w", path, err)
	}
	defer r.Close()

	removed := 0
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range r.File {
		data, err := readZipEntry(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		if f.Name == "docProps/core.xml" {
			removed = len(corePropsFields(data))
			data = []byte(blankCorePropsXML)
		}
		fw, err := w.Create(f.Name)
		if err != nil {
			return nil, fmt.Errorf("rewrite %s: %w", f.Name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return nil, fmt.Errorf("rewrite %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize zip: %w", err)
	}

	if outputPath == "" {
		outputPath = fileutil.DerivedPath(path, DefaultCleanSuffix)
	}
	if err := filelock.AtomicWrite(outputPath, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("write %s: %w", outputPath, err)
	}
	return &ClearResult{OutputPath: outputPath, RemovedFields: removed}, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func corePropsFields(data []byte) []Field {
	var props opcCoreProps
	if err := xml.Unmarshal(stripXMLNamespaces(data), &props); err != nil {
		return nil
	}

	var fields []Field
	add := func(key, value string) {
		if value != "" {
			fields = append(fields, Field{Key: key, Value: value, Category: "Core Properties"})
		}
	}
	add("Title", props.Title)
	add("Subject", props.Subject)
	add("Author", props.Creator)
	add("Keywords", props.Keywords)
	add("Description", props.Description)
	add("LastModifiedBy", props.LastModifiedBy)
	add("Revision", props.Revision)
	add("Created", props.Created)
	add("Modified", props.Modified)
	add("Category", props.Category)
	return fields
}

func appPropsFields(data []byte) []Field {
	var props opcAppProps
	if err := xml.Unmarshal(stripXMLNamespaces(data), &props); err != nil {
		return nil
	}

	var fields []Field
	add := func(key, value string) {
		if value != "" {
			fields = append(fields, Field{Key: key, Value: value, Category: "App Properties"})
		}
	}
	add("Application", props.Application)
	add("Company", props.Company)
	add("Pages", props.Pages)
	add("Words", props.Words)
	return fields
}

var (
	xmlnsAttrRe = regexp.MustCompile(`\s+xmlns(?::\w+)?="[^"]*"`)
	xmlPrefixRe = regexp.MustCompile(`<(/?)\w+:`)
)

// stripXMLNamespaces drops namespace declarations and element prefixes so
// the props structs unmarshal without namespace-qualified tags.
func stripXMLNamespaces(data []byte) []byte {
	data = xmlnsAttrRe.ReplaceAll(data, nil)
	return xmlPrefixRe.ReplaceAll(data, []byte("<$1"))
}
