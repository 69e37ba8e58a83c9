// Package printing turns orders into invoice PDFs.
//
// An invoice is rendered in two steps: the embedded invoice.html template is
// executed by TemplateEngine with an InvoiceView built from the order, then
// the resulting HTML is printed to PDF by a PDFRenderer. ChromedpRenderer
// drives a headless Chrome, either launched locally or reached over a remote
// DevTools websocket.
//
//	renderer, err := NewChromedpRenderer(cfg.Printing, logger)
//	if err != nil {
//	    return err
//	}
//	defer renderer.Close()
//
//	invoices, err := NewInvoicePrinter(renderer, SellerFrom(cfg.Store))
//	pdf, err := invoices.Print(ctx, o)
package printing
