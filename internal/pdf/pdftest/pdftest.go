// Package pdftest builds small, well-formed PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Field describes one annotation placed on the generated page
type Field struct {
	Name    string
	Subtype string     // defaults to "Widget"
	FT      string     // Tx, Btn, Ch or empty
	Rect    [4]float64 // llx lly urx ury in PDF user space
	Value   string     // written as /V when non-empty
	Flags   int        // /Ff
}

// Letter is the US Letter media box
var Letter = [4]float64{0, 0, 612, 792}

// FormPDF returns a single-page document whose page carries the given
// annotations in order. Widgets are merged field/widget dictionaries listed
// in the AcroForm.
func FormPDF(mediaBox [4]float64, fields ...Field) []byte {
	const firstAnnot = 5

	var objects []string
	var annotRefs, fieldRefs []string
	for i := range fields {
		ref := fmt.Sprintf("%d 0 R", firstAnnot+i)
		annotRefs = append(annotRefs, ref)
		if subtype(fields[i]) == "Widget" {
			fieldRefs = append(fieldRefs, ref)
		}
	}

	objects = append(objects,
		fmt.Sprintf("<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields [%s] >> >>", strings.Join(fieldRefs, " ")),
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [%s] /Contents 4 0 R /Resources << >> /Annots [%s] >>",
			numbers(mediaBox), strings.Join(annotRefs, " ")),
		"<< /Length 0 >>\nstream\n\nendstream",
	)

	for _, f := range fields {
		objects = append(objects, annotation(f))
	}

	return assemble(objects)
}

// BlankPDF returns a single-page document without annotations
func BlankPDF() []byte {
	return FormPDF(Letter)
}

// MultiPagePDF returns a document with the given number of empty pages
func MultiPagePDF(pages int) []byte {
	var kids []string
	for i := 0; i < pages; i++ {
		kids = append(kids, fmt.Sprintf("%d 0 R", 3+i))
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>", strings.Join(kids, " "), pages),
	}
	for i := 0; i < pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /Resources << >> >>")
	}
	return assemble(objects)
}

func subtype(f Field) string {
	if f.Subtype == "" {
		return "Widget"
	}
	return f.Subtype
}

func annotation(f Field) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<< /Type /Annot /Subtype /%s /Rect [%s] /P 3 0 R /F 4", subtype(f), numbers(f.Rect))
	if f.FT != "" {
		fmt.Fprintf(&b, " /FT /%s", f.FT)
	}
	if f.Name != "" {
		fmt.Fprintf(&b, " /T (%s)", escape(f.Name))
	}
	if f.Flags != 0 {
		fmt.Fprintf(&b, " /Ff %d", f.Flags)
	}
	if f.Value != "" {
		if f.FT == "Btn" {
			fmt.Fprintf(&b, " /V /%s", f.Value)
		} else {
			fmt.Fprintf(&b, " /V (%s)", escape(f.Value))
		}
	}
	b.WriteString(" >>")
	return b.String()
}

// assemble numbers the objects from 1 and writes a classic xref table with
// exact byte offsets
func assemble(objects []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefOffset)

	return buf.Bytes()
}

func numbers(r [4]float64) string {
	parts := make([]string, len(r))
	for i, v := range r {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, " ")
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace(s)
}
