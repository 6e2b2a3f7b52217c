package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"github.com/udisondev/statustree/internal/db"
	"github.com/udisondev/statustree/internal/model"
	"github.com/udisondev/statustree/internal/testutil"
)

type RepositorySuite struct {
	suite.Suite
	pool        *pgxpool.Pool
	definitions *db.DefinitionRepository
	snapshots   *db.SnapshotRepository
	ctx         context.Context
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupSuite() {
	s.pool = testutil.SetupTestDB(s.T())
	s.definitions = db.NewDefinitionRepository(s.pool)
	s.snapshots = db.NewSnapshotRepository(s.pool)
}

func (s *RepositorySuite) SetupTest() {
	s.ctx = testutil.ContextWithTimeout(s.T(), 30*time.Second)
	for _, q := range []string{"TRUNCATE stat_trees CASCADE", "TRUNCATE entity_stat_values"} {
		if _, err := s.pool.Exec(s.ctx, q); err != nil {
			s.T().Logf("cleanup warning: %v", err) // non-fatal
		}
	}
}

func (s *RepositorySuite) TestDefinition_RoundTrip() {
	def := testutil.ScenarioDefinition("character")

	id, err := s.definitions.Save(s.ctx, def)
	s.Require().NoError(err)
	s.NotEqual(uuid.Nil, id)

	loaded, err := s.definitions.Load(s.ctx, "character")
	s.Require().NoError(err)
	s.Equal(def, loaded, "open bounds survive as +/-Infinity")

	root, err := loaded.Build()
	s.Require().NoError(err)
	s.Equal(100.0, root.Value())
}

func (s *RepositorySuite) TestDefinition_SaveReplaces() {
	def := testutil.ScenarioDefinition("character")
	firstID, err := s.definitions.Save(s.ctx, def)
	s.Require().NoError(err)

	def.RemoveNode(4) // Buff
	secondID, err := s.definitions.Save(s.ctx, def)
	s.Require().NoError(err)
	s.Equal(firstID, secondID, "name keeps its ID")

	loaded, err := s.definitions.Load(s.ctx, "character")
	s.Require().NoError(err)
	s.Len(loaded.Nodes, 6)
	s.Equal([]int{3}, loaded.Nodes[1].ChildIndices, "InGame keeps only Base")
}

func (s *RepositorySuite) TestDefinition_MissingAndList() {
	missing, err := s.definitions.Load(s.ctx, "nope")
	s.Require().NoError(err)
	s.Nil(missing)

	for _, name := range []string{"beta", "alpha"} {
		_, err := s.definitions.Save(s.ctx, testutil.ScenarioDefinition(name))
		s.Require().NoError(err)
	}

	names, err := s.definitions.List(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"alpha", "beta"}, names)

	s.Require().NoError(s.definitions.Delete(s.ctx, "alpha"))
	s.Require().NoError(s.definitions.Delete(s.ctx, "alpha"))
	names, err = s.definitions.List(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"beta"}, names)
}

func (s *RepositorySuite) TestDefinition_EmptyName() {
	def := testutil.ScenarioDefinition("")
	_, err := s.definitions.Save(s.ctx, def)
	s.Error(err)
}

func (s *RepositorySuite) TestSnapshot_RestoresEntityStat() {
	entityID := uuid.New()
	def := testutil.ScenarioDefinition("character")

	live := model.NewDataDrivenStat[uuid.UUID](def)
	s.Require().NoError(live.Setup(entityID))
	live.AddValueToNode("Buff", 0.5)
	live.AddValueToNode("Level", 1)
	s.Require().Equal(300.0, live.Value())

	s.Require().NoError(s.snapshots.Save(s.ctx, entityID, def.Name, live.Snapshot()))

	values, err := s.snapshots.Load(s.ctx, entityID, def.Name)
	s.Require().NoError(err)
	s.Len(values, 4)

	restored := model.NewDataDrivenStat[uuid.UUID](def)
	s.Require().NoError(restored.Setup(entityID))
	skipped, err := restored.Restore(values)
	s.Require().NoError(err)
	s.Zero(skipped)
	s.Equal(300.0, restored.Value())

	s.Require().NoError(s.snapshots.DeleteEntity(s.ctx, entityID))
	values, err = s.snapshots.Load(s.ctx, entityID, def.Name)
	s.Require().NoError(err)
	s.Empty(values)
}

func (s *RepositorySuite) TestSnapshot_SaveReplaces() {
	entityID := uuid.New()
	s.Require().NoError(s.snapshots.Save(s.ctx, entityID, "t", map[string]float64{"a": 1, "b": 2}))
	s.Require().NoError(s.snapshots.Save(s.ctx, entityID, "t", map[string]float64{"a": 5}))

	values, err := s.snapshots.Load(s.ctx, entityID, "t")
	s.Require().NoError(err)
	s.Equal(map[string]float64{"a": 5}, values)
}
