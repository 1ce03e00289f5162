package testtypes

import "reflect"

var (
	TypeResourceRepository = reflect.TypeFor[*ResourceRepository]()
	TypeResourceService    = reflect.TypeFor[*ResourceService]()
	TypeResourceController = reflect.TypeFor[*ResourceController]()
)

type ResourceRepository struct {
	Name string
}

func NewResourceRepository() *ResourceRepository {
	return &ResourceRepository{Name: "default"}
}

type ResourceService struct {
	Repo *ResourceRepository
}

func NewResourceService(repo *ResourceRepository) *ResourceService {
	return &ResourceService{Repo: repo}
}

// ResourceController takes an untyped dependency, which can only be resolved by tag.
type ResourceController struct {
	Service *ResourceService
	Config  any
}

func NewResourceController(svc *ResourceService, config any) *ResourceController {
	return &ResourceController{
		Service: svc,
		Config:  config,
	}
}

// ResourceHandler is populated with struct tags instead of a constructor.
type ResourceHandler struct {
	Service *ResourceService `di:""`
	Config  any              `di:"tag=config"`
	Ignored string
}
