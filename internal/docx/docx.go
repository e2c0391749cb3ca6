// Package docx builds WordprocessingML (.docx) documents in memory and saves
// them in a single write. Only the features the converters need are
// supported: styled paragraphs with line breaks, inline pictures, page
// breaks, next-page section breaks and a table of contents field.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/bmharper/pdfconvert/internal/atomicfile"
	"github.com/rotisserie/eris"
)

const (
	twipsPerInch = 1440
	emuPerInch   = 914400
)

// PageSetup is the page size and uniform margin, in inches.
type PageSetup struct {
	Width  float64
	Height float64
	Margin float64
}

// Letter is 8.5x11 inches with half inch margins.
func Letter() PageSetup {
	return PageSetup{Width: 8.5, Height: 11, Margin: 0.5}
}

// ContentWidth is the page width less both margins.
func (p PageSetup) ContentWidth() float64 { return p.Width - 2*p.Margin }

// ContentHeight is the page height less both margins.
func (p PageSetup) ContentHeight() float64 { return p.Height - 2*p.Margin }

type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
)

type element interface {
	writeXML(b *bytes.Buffer)
}

// Paragraph is a block of runs. Text runs may contain '\n', which becomes a
// line break inside the paragraph.
type Paragraph struct {
	Style      string
	Align      Alignment
	NoSpacing  bool // Zero spacing before and after
	runs       []run
	sectionEnd *PageSetup
}

type run struct {
	text      string
	pageBreak bool
	picture   *picture
}

type picture struct {
	id     int
	relID  string
	name   string
	cx, cy int64
}

type media struct {
	relID       string
	name        string
	contentType string
	data        []byte
}

// Document accumulates body elements. Nothing touches the disk until Save.
type Document struct {
	Page    PageSetup
	Title   string
	Author  string
	Created time.Time

	body   []element
	media  []media
	hasTOC bool
}

func New(page PageSetup) *Document {
	return &Document{Page: page}
}

// AddParagraph appends a paragraph holding text.
func (d *Document) AddParagraph(text string) *Paragraph {
	p := &Paragraph{}
	if text != "" {
		p.runs = append(p.runs, run{text: text})
	}
	d.body = append(d.body, p)
	return p
}

// AddStyledParagraph appends a paragraph with the given style id, eg "Heading1".
func (d *Document) AddStyledParagraph(text, style string) *Paragraph {
	p := d.AddParagraph(text)
	p.Style = style
	return p
}

// AddText appends a text run to the paragraph.
func (p *Paragraph) AddText(text string) {
	p.runs = append(p.runs, run{text: text})
}

// AddPageBreak appends a paragraph that holds only a page break.
func (d *Document) AddPageBreak() {
	d.body = append(d.body, &Paragraph{runs: []run{{pageBreak: true}}})
}

// AddSection ends the current section. Content added afterwards starts on a
// new page.
func (d *Document) AddSection() {
	page := d.Page
	d.body = append(d.body, &Paragraph{sectionEnd: &page})
}

// TOCEntry is one heading listed in a table of contents.
type TOCEntry struct {
	Text  string
	Level int // 1 for Heading1
}

type toc struct {
	levels  int
	entries []TOCEntry
}

// AddTOC appends a table of contents field over heading levels 1..levels.
// entries are written as the field's current result, so the contents show
// without a field update. Word refreshes the field (and adds page numbers)
// when the document is opened.
func (d *Document) AddTOC(levels int, entries []TOCEntry) {
	d.body = append(d.body, &toc{levels: levels, entries: entries})
	d.hasTOC = true
}

func (t *toc) writeXML(b *bytes.Buffer) {
	fmt.Fprintf(b, `<w:p><w:r><w:fldChar w:fldCharType="begin" w:dirty="true"/></w:r>`+
		`<w:r><w:instrText xml:space="preserve"> TOC \o "1-%d" \h \z \u </w:instrText></w:r>`+
		`<w:r><w:fldChar w:fldCharType="separate"/></w:r></w:p>`, t.levels)
	for _, e := range t.entries {
		p := Paragraph{Style: fmt.Sprintf("TOC%d", min(max(e.Level, 1), 3)), runs: []run{{text: e.Text}}}
		p.writeXML(b)
	}
	b.WriteString(`<w:p><w:r><w:fldChar w:fldCharType="end"/></w:r></w:p>`)
}

// AddPicture embeds an image and places it as an inline run of p, scaled to
// width x height inches. contentType is "image/png" or "image/jpeg".
func (d *Document) AddPicture(p *Paragraph, data []byte, contentType string, width, height float64) error {
	ext := ""
	switch contentType {
	case "image/png":
		ext = "png"
	case "image/jpeg":
		ext = "jpeg"
	default:
		return eris.Errorf("unsupported picture type %q", contentType)
	}
	if width <= 0 || height <= 0 {
		return eris.Errorf("invalid picture size %vx%v", width, height)
	}
	n := len(d.media) + 1
	m := media{
		relID:       fmt.Sprintf("rIdImage%d", n),
		name:        fmt.Sprintf("image%d.%s", n, ext),
		contentType: contentType,
		data:        data,
	}
	d.media = append(d.media, m)
	p.runs = append(p.runs, run{picture: &picture{
		id:    n,
		relID: m.relID,
		name:  m.name,
		cx:    int64(math.Round(width * emuPerInch)),
		cy:    int64(math.Round(height * emuPerInch)),
	}})
	return nil
}

// NumSections is the number of sections the document will have when saved.
func (d *Document) NumSections() int {
	n := 1
	for _, e := range d.body {
		if p, ok := e.(*Paragraph); ok && p.sectionEnd != nil {
			n++
		}
	}
	return n
}

// WriteTo writes the .docx package to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", d.contentTypes()},
		{"_rels/.rels", []byte(packageRels)},
		{"docProps/core.xml", d.coreProps()},
		{"word/document.xml", d.documentXML()},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/_rels/document.xml.rels", d.documentRels()},
	}
	if d.hasTOC {
		parts = append(parts, struct {
			name string
			data []byte
		}{"word/settings.xml", []byte(settingsXML)})
	}
	for _, part := range parts {
		if err := writePart(zw, part.name, part.data, zip.Deflate); err != nil {
			return cw.n, err
		}
	}
	for _, m := range d.media {
		if err := writePart(zw, "word/media/"+m.name, m.data, zip.Store); err != nil {
			return cw.n, err
		}
	}
	err := zw.Close()
	return cw.n, err
}

// Save writes the document to path in one atomic operation.
func (d *Document) Save(path string) error {
	return atomicfile.Write(path, func(w io.Writer) error {
		_, err := d.WriteTo(w)
		return err
	})
}

func writePart(zw *zip.Writer, name string, data []byte, method uint16) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
	if err != nil {
		return eris.Wrapf(err, "create part %s", name)
	}
	if _, err := fw.Write(data); err != nil {
		return eris.Wrapf(err, "write part %s", name)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func escape(b *bytes.Buffer, s string) {
	xml.EscapeText(b, []byte(s))
}

func (d *Document) contentTypes() []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Default Extension="png" ContentType="image/png"/>`)
	b.WriteString(`<Default Extension="jpeg" ContentType="image/jpeg"/>`)
	b.WriteString(`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`)
	b.WriteString(`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`)
	if d.hasTOC {
		b.WriteString(`<Override PartName="/word/settings.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.settings+xml"/>`)
	}
	b.WriteString(`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`)
	b.WriteString(`</Types>`)
	return b.Bytes()
}

const packageRels = xml.Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
	`</Relationships>`

func (d *Document) documentRels() []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rIdStyles" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>`)
	if d.hasTOC {
		b.WriteString(`<Relationship Id="rIdSettings" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings" Target="settings.xml"/>`)
	}
	for _, m := range d.media {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/%s"/>`, m.relID, m.name)
	}
	b.WriteString(`</Relationships>`)
	return b.Bytes()
}

func (d *Document) coreProps() []byte {
	created := d.Created
	if created.IsZero() {
		created = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	b.WriteString(`<dc:title>`)
	escape(&b, d.Title)
	b.WriteString(`</dc:title><dc:creator>`)
	escape(&b, d.Author)
	b.WriteString(`</dc:creator>`)
	fmt.Fprintf(&b, `<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>`, created.UTC().Format(time.RFC3339))
	b.WriteString(`</cp:coreProperties>`)
	return b.Bytes()
}

func (d *Document) documentXML() []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"` +
		` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"` +
		` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
		` xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`)
	b.WriteString(`<w:body>`)
	for _, e := range d.body {
		e.writeXML(&b)
	}
	writeSectPr(&b, d.Page)
	b.WriteString(`</w:body></w:document>`)
	return b.Bytes()
}

func writeSectPr(b *bytes.Buffer, page PageSetup) {
	fmt.Fprintf(b, `<w:sectPr><w:type w:val="nextPage"/><w:pgSz w:w="%d" w:h="%d"/>`,
		twips(page.Width), twips(page.Height))
	m := twips(page.Margin)
	fmt.Fprintf(b, `<w:pgMar w:top="%d" w:right="%d" w:bottom="%d" w:left="%d" w:header="%d" w:footer="%d" w:gutter="0"/>`,
		m, m, m, m, m, m)
	b.WriteString(`</w:sectPr>`)
}

func twips(inches float64) int {
	return int(math.Round(inches * twipsPerInch))
}

func (p *Paragraph) writeXML(b *bytes.Buffer) {
	b.WriteString(`<w:p>`)
	if p.Style != "" || p.Align != AlignLeft || p.NoSpacing || p.sectionEnd != nil {
		b.WriteString(`<w:pPr>`)
		if p.Style != "" {
			b.WriteString(`<w:pStyle w:val="`)
			escape(b, p.Style)
			b.WriteString(`"/>`)
		}
		if p.NoSpacing {
			b.WriteString(`<w:spacing w:before="0" w:after="0"/>`)
		}
		if p.Align == AlignCenter {
			b.WriteString(`<w:jc w:val="center"/>`)
		}
		if p.sectionEnd != nil {
			writeSectPr(b, *p.sectionEnd)
		}
		b.WriteString(`</w:pPr>`)
	}
	for _, r := range p.runs {
		r.writeXML(b)
	}
	b.WriteString(`</w:p>`)
}

func (r run) writeXML(b *bytes.Buffer) {
	b.WriteString(`<w:r>`)
	switch {
	case r.pageBreak:
		b.WriteString(`<w:br w:type="page"/>`)
	case r.picture != nil:
		r.picture.writeXML(b)
	default:
		for i, line := range strings.Split(r.text, "\n") {
			if i > 0 {
				b.WriteString(`<w:br/>`)
			}
			if line == "" {
				continue
			}
			b.WriteString(`<w:t xml:space="preserve">`)
			escape(b, line)
			b.WriteString(`</w:t>`)
		}
	}
	b.WriteString(`</w:r>`)
}

func (p *picture) writeXML(b *bytes.Buffer) {
	fmt.Fprintf(b, `<w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%d" cy="%d"/>`+
		`<wp:docPr id="%d" name="Picture %d"/>`+
		`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>`+
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic><pic:nvPicPr><pic:cNvPr id="%d" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing>`,
		p.cx, p.cy, p.id, p.id, p.id, p.name, p.relID, p.cx, p.cy)
}

const stylesXML = xml.Header + `<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri" w:eastAsia="Calibri" w:cs="Calibri"/><w:sz w:val="22"/></w:rPr></w:rPrDefault>` +
	`<w:pPrDefault><w:pPr><w:spacing w:after="160" w:line="259" w:lineRule="auto"/></w:pPr></w:pPrDefault></w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/><w:rPr><w:sz w:val="56"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/><w:pPr><w:keepNext/><w:spacing w:before="240" w:after="0"/><w:outlineLvl w:val="0"/></w:pPr><w:rPr><w:b/><w:sz w:val="32"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/><w:pPr><w:keepNext/><w:spacing w:before="200" w:after="0"/><w:outlineLvl w:val="1"/></w:pPr><w:rPr><w:b/><w:sz w:val="28"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/><w:pPr><w:keepNext/><w:spacing w:before="160" w:after="0"/><w:outlineLvl w:val="2"/></w:pPr><w:rPr><w:b/><w:sz w:val="24"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="TOC1"><w:name w:val="toc 1"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:pPr><w:spacing w:after="100"/></w:pPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="TOC2"><w:name w:val="toc 2"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:pPr><w:spacing w:after="100"/><w:ind w:left="220"/></w:pPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="TOC3"><w:name w:val="toc 3"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:pPr><w:spacing w:after="100"/><w:ind w:left="440"/></w:pPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="ListBullet"><w:name w:val="List Bullet"/><w:basedOn w:val="Normal"/><w:pPr><w:ind w:left="360" w:hanging="360"/></w:pPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Code"><w:name w:val="Code"/><w:basedOn w:val="Normal"/><w:pPr><w:shd w:val="clear" w:color="auto" w:fill="F4F4F4"/><w:spacing w:after="0"/></w:pPr><w:rPr><w:rFonts w:ascii="Courier New" w:hAnsi="Courier New" w:cs="Courier New"/><w:sz w:val="20"/></w:rPr></w:style>` +
	`</w:styles>`

// settingsXML asks Word to update fields on open, which fills in the table of
// contents page numbers.
const settingsXML = xml.Header + `<w:settings xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:updateFields w:val="true"/>` +
	`</w:settings>`
