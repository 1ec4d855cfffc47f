package upload

import (
	"context"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"floordesign/logger"
	"floordesign/models"
)

// PrincipalImageID is the public ID of the cover image inside the product folder.
const PrincipalImageID = "imagePrincipale"

// FolderRoot prefixes every product folder on the media host.
const FolderRoot = "products"

// Registrar checks and persists products.
type Registrar interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, record models.CreateProductRequest) (models.Product, error)
}

// Uploader stores one image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, publicID, folder string) (string, error)
}

// Deleter is implemented by uploaders that can remove what they stored.
// publicID is the full path, e.g. "products/Tapis/imagePrincipale".
type Deleter interface {
	Delete(ctx context.Context, publicID string) error
}

// Transformer rewrites image bytes before upload (e.g. downscaling).
type Transformer interface {
	Transform(filename string, data []byte) ([]byte, error)
}

// Options are opt-in behaviors. The zero value uploads media as-is and
// leaves it in place when a later step fails.
type Options struct {
	// StrictRoots makes Classify reject files from several top-level folders.
	StrictRoots bool
	// CleanupOnFailure deletes this attempt's uploads if the submission fails.
	// Requires an Uploader that is also a Deleter.
	CleanupOnFailure bool
	// Transformer, when set, is applied to every file before upload.
	Transformer Transformer
}

// Phase is the lifecycle stage of a submission.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseChecking    Phase = "checking"
	PhaseUploading   Phase = "uploading"
	PhaseRegistering Phase = "registering"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

// Finished reports whether the phase is terminal.
func (p Phase) Finished() bool {
	return p == PhaseDone || p == PhaseFailed
}

// State is a snapshot of a submission, published after every transition.
type State struct {
	Phase       Phase           `json:"phase"`
	ProductName string          `json:"product_name"`
	Uploaded    int             `json:"uploaded"`
	Total       int             `json:"total"`
	Progress    int             `json:"progress"`
	Error       string          `json:"error,omitempty"`
	Product     *models.Product `json:"product,omitempty"`
}

// Observer receives state snapshots in order.
type Observer func(State)

// Request is everything an admin submits for a new product.
type Request struct {
	Structure   *ProductStructure
	Description string
	Categories  []string
	Price       string
}

// Progress is round-half-up(uploaded/total*100), held at 99 until every
// file is done so that 100 always means complete.
func Progress(uploaded, total int) int {
	if total <= 0 || uploaded <= 0 {
		return 0
	}
	if uploaded >= total {
		return 100
	}
	p := (200*uploaded + total) / (2 * total)
	if p > 99 {
		p = 99
	}
	return p
}

// Orchestrator runs submissions. It holds no per-submission state and can
// be shared; each Submit call is one sequential flow.
type Orchestrator struct {
	registrar Registrar
	uploader  Uploader
	opts      Options
}

// NewOrchestrator wires the collaborators.
func NewOrchestrator(registrar Registrar, uploader Uploader, opts Options) *Orchestrator {
	return &Orchestrator{registrar: registrar, uploader: uploader, opts: opts}
}

// Classify applies the configured classification mode.
func (o *Orchestrator) Classify(files []FileEntry) (ProductStructure, error) {
	if o.opts.StrictRoots {
		return ClassifyStrict(files)
	}
	return Classify(files), nil
}

type checkedRequest struct {
	structure   *ProductStructure
	description string
	categories  []models.Category
	price       decimal.Decimal
}

// Validate checks every precondition of Submit without calling anything.
func (o *Orchestrator) Validate(req Request) error {
	return Validate(req)
}

// Validate checks req against Submit's preconditions. It needs no
// collaborators, so callers can run it before opening any connection.
func Validate(req Request) error {
	_, err := validate(req)
	return err
}

func validate(req Request) (checkedRequest, error) {
	if req.Structure == nil || req.Structure.PrincipalImage == nil {
		return checkedRequest{}, &ValidationError{Field: "image", Message: "L'image principale est requise"}
	}
	if strings.TrimSpace(req.Structure.ProductName) == "" {
		return checkedRequest{}, &ValidationError{Field: "name", Message: "Le nom du produit est requis"}
	}
	for _, m := range req.Structure.Motifs {
		if strings.TrimSpace(m.Name) == "" {
			return checkedRequest{}, &ValidationError{Field: "motifs", Message: "Chaque motif doit avoir un nom"}
		}
		for _, c := range m.Colors {
			// "Floral/.png" classifies with an empty label and no usable public ID
			if strings.TrimSpace(c.ColorLabel) == "" {
				return checkedRequest{}, &ValidationError{Field: "motifs", Message: "Couleur incomplète dans le motif " + m.Name}
			}
		}
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return checkedRequest{}, &ValidationError{Field: "description", Message: "La description est requise"}
	}

	if len(req.Categories) == 0 {
		return checkedRequest{}, &ValidationError{Field: "category", Message: "Au moins une catégorie est requise"}
	}
	categories := make([]models.Category, 0, len(req.Categories))
	seen := make(map[models.Category]bool, len(req.Categories))
	for _, raw := range req.Categories {
		c, ok := models.ParseCategory(raw)
		if !ok {
			return checkedRequest{}, &ValidationError{Field: "category", Message: "Catégorie inconnue : " + raw}
		}
		if !seen[c] {
			seen[c] = true
			categories = append(categories, c)
		}
	}

	rawPrice := strings.TrimSpace(req.Price)
	if rawPrice == "" {
		return checkedRequest{}, &ValidationError{Field: "price", Message: "Le prix est requis"}
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return checkedRequest{}, &ValidationError{Field: "price", Message: "Le prix doit être un nombre"}
	}
	if price.IsNegative() {
		return checkedRequest{}, &ValidationError{Field: "price", Message: "Le prix ne peut pas être négatif"}
	}

	return checkedRequest{
		structure:   req.Structure,
		description: description,
		categories:  categories,
		price:       price,
	}, nil
}

// Submit validates, checks the name, uploads every file one at a time and
// registers the product. observe may be nil.
func (o *Orchestrator) Submit(ctx context.Context, req Request, observe Observer) (models.Product, error) {
	r := &run{o: o, observe: observe}

	valid, err := validate(req)
	if err != nil {
		return models.Product{}, r.fail(err)
	}
	s := valid.structure
	r.state.ProductName = s.ProductName
	r.state.Total = s.TotalFiles()

	r.transition(PhaseChecking)
	exists, err := o.registrar.Exists(ctx, s.ProductName)
	if err != nil {
		return models.Product{}, r.fail(&ServerError{Op: "check product name", Err: err})
	}
	if exists {
		return models.Product{}, r.fail(ErrDuplicateName)
	}

	r.transition(PhaseUploading)
	productFolder := FolderRoot + "/" + s.ProductName

	imageURL, err := r.upload(ctx, *s.PrincipalImage, PrincipalImageID, productFolder)
	if err != nil {
		return models.Product{}, r.fail(err)
	}

	motifs := make([]models.Motif, 0, len(s.Motifs))
	for _, group := range s.Motifs {
		motif := models.Motif{Name: group.Name, ColorLayers: make([]models.ColorLayer, 0, len(group.Colors))}
		folder := productFolder + "/" + group.Name
		for _, color := range group.Colors {
			url, err := r.upload(ctx, color.File, color.ColorLabel, folder)
			if err != nil {
				return models.Product{}, r.fail(err)
			}
			motif.ColorLayers = append(motif.ColorLayers, models.ColorLayer{
				ColorLabel: color.ColorLabel,
				ImageURL:   url,
			})
		}
		motifs = append(motifs, motif)
	}

	r.transition(PhaseRegistering)
	product, err := o.registrar.Create(ctx, models.CreateProductRequest{
		Name:        s.ProductName,
		Image:       imageURL,
		Description: valid.description,
		Category:    valid.categories,
		Price:       valid.price,
		Motifs:      motifs,
	})
	if err != nil {
		var rejection *RegistrarRejectionError
		if !errors.As(err, &rejection) {
			err = &ServerError{Op: "create product", Err: err}
		}
		return models.Product{}, r.fail(err)
	}

	r.state.Product = &product
	r.transition(PhaseDone)
	return product, nil
}

// run is the state of a single submission. Only its own goroutine touches it.
type run struct {
	o        *Orchestrator
	observe  Observer
	state    State
	uploaded []string
}

func (r *run) transition(phase Phase) {
	r.state.Phase = phase
	r.emit()
}

func (r *run) emit() {
	if r.observe != nil {
		r.observe(r.state)
	}
}

func (r *run) upload(ctx context.Context, file FileEntry, publicID, folder string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, "upload cancelled")
	}

	data, err := readAll(file)
	if err != nil {
		return "", &UploadTransportError{Path: file.Path(), Err: err}
	}
	if t := r.o.opts.Transformer; t != nil {
		if data, err = t.Transform(file.Name(), data); err != nil {
			return "", &UploadTransportError{Path: file.Path(), Err: err}
		}
	}

	url, err := r.o.uploader.Upload(ctx, data, publicID, folder)
	if err != nil {
		return "", &UploadTransportError{Path: file.Path(), Err: err}
	}
	r.uploaded = append(r.uploaded, folder+"/"+publicID)

	r.state.Uploaded++
	r.state.Progress = Progress(r.state.Uploaded, r.state.Total)
	r.emit()
	return url, nil
}

func (r *run) fail(err error) error {
	r.state.Phase = PhaseFailed
	r.state.Error = UserMessage(err)
	r.emit()

	if r.o.opts.CleanupOnFailure && len(r.uploaded) > 0 {
		r.cleanup()
	}
	return err
}

// cleanup removes this attempt's uploads. It runs detached from the
// submission context, which may already be cancelled.
func (r *run) cleanup() {
	deleter, ok := r.o.uploader.(Deleter)
	if !ok {
		logger.Warn("Cleanup requested but the media store cannot delete; %d file(s) left in place", len(r.uploaded))
		return
	}

	for _, id := range r.uploaded {
		if err := deleter.Delete(context.Background(), id); err != nil {
			logger.WithFields(map[string]interface{}{
				"public_id": id,
				"product":   r.state.ProductName,
			}).Warn("Failed to delete orphaned media: %v", err)
		}
	}
}

func readAll(file FileEntry) ([]byte, error) {
	if file.Open == nil {
		return nil, errors.New("file has no content")
	}
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
