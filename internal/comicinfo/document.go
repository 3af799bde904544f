package comicinfo

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"slices"
	"strings"

	"longbox/internal/approval"
)

// EntryName is the archive entry holding metadata.
const EntryName = "ComicInfo.xml"

// elementNames maps managed fields to ComicInfo elements.
var elementNames = map[approval.FieldName]string{
	approval.FieldSeries:      "Series",
	approval.FieldNumber:      "Number",
	approval.FieldTitle:       "Title",
	approval.FieldVolume:      "Volume",
	approval.FieldYear:        "Year",
	approval.FieldMonth:       "Month",
	approval.FieldPublisher:   "Publisher",
	approval.FieldWriter:      "Writer",
	approval.FieldPenciller:   "Penciller",
	approval.FieldCoverArtist: "CoverArtist",
	approval.FieldSummary:     "Summary",
	approval.FieldWeb:         "Web",
}

// schemaOrder is the ComicInfo 2.0 element sequence.
var schemaOrder = []string{
	"Title", "Series", "Number", "Count", "Volume", "AlternateSeries", "AlternateNumber",
	"AlternateCount", "Summary", "Notes", "Year", "Month", "Day", "Writer", "Penciller",
	"Inker", "Colorist", "Letterer", "CoverArtist", "Editor", "Translator", "Publisher",
	"Imprint", "Genre", "Tags", "Web", "PageCount", "LanguageISO", "Format", "BlackAndWhite",
	"Manga", "Characters", "Teams", "Locations", "ScanInformation", "StoryArc",
	"StoryArcNumber", "SeriesGroup", "AgeRating", "Pages", "CommunityRating",
	"MainCharacterOrTeam", "Review", "GTIN",
}

type document struct {
	XMLName  xml.Name  `xml:"ComicInfo"`
	XSI      string    `xml:"xmlns:xsi,attr,omitempty"`
	XSD      string    `xml:"xmlns:xsd,attr,omitempty"`
	Elements []element `xml:",any"`
}

type element struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

func parseDocument(data []byte) (*document, error) {
	doc := &document{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := xml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", EntryName, err)
	}
	return doc, nil
}

// fields returns the managed values present in the document.
func (d *document) fields() (map[approval.FieldName]string, error) {
	out := make(map[approval.FieldName]string)
	for field, name := range elementNames {
		idx := d.index(name)
		if idx < 0 {
			continue
		}
		text, err := unescape(d.Elements[idx].Inner)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			out[field] = text
		}
	}
	return out, nil
}

// set writes a managed field. Empty values remove the element.
func (d *document) set(field approval.FieldName, value string) error {
	name, ok := elementNames[field]
	if !ok {
		return fmt.Errorf("unsupported field %q", field)
	}
	value = strings.TrimSpace(value)
	idx := d.index(name)
	if value == "" {
		if idx >= 0 {
			d.Elements = slices.Delete(d.Elements, idx, idx+1)
		}
		return nil
	}
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(value)); err != nil {
		return fmt.Errorf("escape %s: %w", name, err)
	}
	if idx >= 0 {
		d.Elements[idx].Inner = buf.String()
		d.Elements[idx].Attrs = nil
		return nil
	}
	d.Elements = append(d.Elements, element{XMLName: xml.Name{Local: name}, Inner: buf.String()})
	return nil
}

func (d *document) index(name string) int {
	return slices.IndexFunc(d.Elements, func(e element) bool { return e.XMLName.Local == name })
}

func (d *document) marshal() ([]byte, error) {
	slices.SortStableFunc(d.Elements, func(a, b element) int {
		return orderOf(a.XMLName.Local) - orderOf(b.XMLName.Local)
	})
	for i := range d.Elements {
		d.Elements[i].XMLName.Space = ""
	}
	d.XMLName = xml.Name{Local: "ComicInfo"}
	d.XSI = "http://www.w3.org/2001/XMLSchema-instance"
	d.XSD = "http://www.w3.org/2001/XMLSchema"
	body, err := xml.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", EntryName, err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

func orderOf(name string) int {
	if idx := slices.Index(schemaOrder, name); idx >= 0 {
		return idx
	}
	return len(schemaOrder)
}

func unescape(inner string) (string, error) {
	var wrapper struct {
		Text string `xml:",chardata"`
	}
	if err := xml.Unmarshal([]byte("<v>"+inner+"</v>"), &wrapper); err != nil {
		return "", err
	}
	return wrapper.Text, nil
}
