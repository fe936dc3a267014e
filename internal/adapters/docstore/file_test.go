package docstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/tiersync/internal/adapters/docstore"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFileStore(t *testing.T) {
	Convey("Given a file store in a temp directory", t, func() {
		dir := t.TempDir()
		store, err := docstore.NewFileStore(dir)
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("When loading a key that was never written", func() {
			_, err := store.Load(ctx, "users")

			Convey("Then it reports not found", func() {
				So(err, ShouldWrap, docstore.ErrNotFound)
			})
		})

		Convey("When saving and loading a document", func() {
			doc := []byte(`{"u1":"player-one"}`)
			So(store.Save(ctx, "users", doc), ShouldBeNil)

			got, err := store.Load(ctx, "users")

			Convey("Then the round trip is exact", func() {
				So(err, ShouldBeNil)
				So(string(got), ShouldEqual, string(doc))
			})

			Convey("And the document lives in a single named file", func() {
				_, statErr := os.Stat(filepath.Join(dir, "users.json"))
				So(statErr, ShouldBeNil)
			})
		})

		Convey("When overwriting a document", func() {
			So(store.Save(ctx, "ranking", []byte(`{"entries":[]}`)), ShouldBeNil)
			So(store.Save(ctx, "ranking", []byte(`{"entries":[{"rating":2100}]}`)), ShouldBeNil)

			got, err := store.Load(ctx, "ranking")

			Convey("Then only the latest write is visible", func() {
				So(err, ShouldBeNil)
				So(string(got), ShouldContainSubstring, "2100")
			})

			Convey("And no temp files are left behind", func() {
				entries, readErr := os.ReadDir(dir)
				So(readErr, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
			})
		})

		Convey("When using a key with path characters", func() {
			err := store.Save(ctx, "../escape", []byte("x"))

			Convey("Then the key is rejected", func() {
				So(err, ShouldWrap, docstore.ErrInvalidKey)
			})
		})
	})
}
