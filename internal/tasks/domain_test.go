package tasks

import "testing"

func TestDecodeMetadataSelectsVariantByType(t *testing.T) {
	meta, err := DecodeMetadata(TypeDocumentReviewCriticalConfidence, []byte(`{"fileName":"Deed.pdf","confidenceScore":45}`))
	if err != nil {
		t.Fatal(err)
	}
	doc, ok := meta.(*DocumentReviewMetadata)
	if !ok {
		t.Fatalf("decoded %#v, want *DocumentReviewMetadata", meta)
	}
	if doc.FileName != "Deed.pdf" || doc.ConfidenceScore != 45 {
		t.Fatalf("decoded fields = %#v", doc)
	}

	meta, err = DecodeMetadata(TypeTitleReportUploadRequired, []byte(`{"requiredCategory":"title_report","daysSinceAdded":20}`))
	if err != nil {
		t.Fatal(err)
	}
	missing, ok := meta.(*MissingDocumentMetadata)
	if !ok || missing.DaysSinceAdded != 20 {
		t.Fatalf("decoded %#v", meta)
	}

	meta, err = DecodeMetadata(TypeGeneralFollowUp, []byte(`{"note":"call servicer"}`))
	if err != nil {
		t.Fatal(err)
	}
	if manual, ok := meta.(*ManualMetadata); !ok || manual.Note != "call servicer" {
		t.Fatalf("decoded %#v", meta)
	}
}

func TestDecodeMetadataEmptyAndUnknown(t *testing.T) {
	meta, err := DecodeMetadata(TypePaymentInvestigation, nil)
	if err != nil || meta != nil {
		t.Fatalf("empty blob: meta=%#v err=%v", meta, err)
	}

	if _, err := DecodeMetadata(Type("bogus"), []byte(`{}`)); err == nil {
		t.Fatal("unknown task type must fail")
	}

	if _, err := DecodeMetadata(TypeLoanReinstatementReview, []byte(`{broken`)); err == nil {
		t.Fatal("malformed blob must fail")
	}
}
